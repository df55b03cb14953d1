// Package web holds the server-rendered booking page.
package web

import (
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

const BookingPage = "booking.html"

// Templates parses the embedded page templates.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"pad2": func(n int) string { return fmt.Sprintf("%02d", n) },
	}).ParseFS(files, "templates/*.html"))
}
