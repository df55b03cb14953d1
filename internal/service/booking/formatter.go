package booking

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/dad1755/ktransport/internal/domain"
	"github.com/dad1755/ktransport/internal/email"
)

const (
	DefaultSubject  = "New Booking Confirmation"
	DefaultLinkBase = "https://wa.me/"
)

var htmlBody = htmltemplate.Must(htmltemplate.New("email.html").Parse(`<html>
  <body>
    <h2>Booking Confirmation Details</h2>
    <table cellpadding="4">
      <tr><td><b>Name:</b></td><td>{{.Name}}</td></tr>
{{- if .Phone}}
      <tr><td><b>Phone:</b></td><td>{{.Phone}} (<a href="{{.ChatLink}}">Chat on WhatsApp</a>)</td></tr>
{{- end}}
      <tr><td><b>Destination:</b></td><td>{{.Destination}}</td></tr>
      <tr><td><b>Pickup Location:</b></td><td>{{.PickupLocation}}</td></tr>
      <tr><td><b>Adults:</b></td><td>{{.Adults}}</td></tr>
      <tr><td><b>Kids:</b></td><td>{{.Kids}}</td></tr>
      <tr><td><b>Infants:</b></td><td>{{.Infants}}</td></tr>
      <tr><td><b>Pickup Date:</b></td><td>{{.PickupDate}}</td></tr>
      <tr><td><b>Pickup Time:</b></td><td>{{.PickupTime}}</td></tr>
      <tr><td><b>Luggage Sizes:</b></td><td>{{.Luggage}}</td></tr>
      <tr><td><b>Notes:</b></td><td>{{.Notes}}</td></tr>
    </table>
  </body>
</html>
`))

var textBody = texttemplate.Must(texttemplate.New("email.txt").Parse(`Booking Confirmation Details:

Name: {{.Name}}
{{- if .Phone}}
Phone: {{.Phone}}
WhatsApp: {{.ChatLink}}
{{- end}}
Destination: {{.Destination}}
Pickup Location: {{.PickupLocation}}
Adults: {{.Adults}}
Kids: {{.Kids}}
Infants: {{.Infants}}
Pickup Date: {{.PickupDate}}
Pickup Time: {{.PickupTime}}
Luggage Sizes: {{.Luggage}}
Notes: {{.Notes}}
`))

// Rendered holds every output produced for one booking.
type Rendered struct {
	Email email.Message
	Chat  string
}

// Formatter renders bookings. It keeps no state between calls and never
// modifies its input.
type Formatter struct {
	subject  string
	html     bool
	linkBase string
}

func NewFormatter(subject string, html bool, linkBase string) *Formatter {
	if subject == "" {
		subject = DefaultSubject
	}
	if linkBase == "" {
		linkBase = DefaultLinkBase
	}
	return &Formatter{subject: subject, html: html, linkBase: linkBase}
}

func (f *Formatter) Render(b domain.Booking) (Rendered, error) {
	body, err := f.EmailBody(b)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{
		Email: email.Message{Subject: f.subject, Body: body, HTML: f.html},
		Chat:  ChatMessage(b),
	}, nil
}

func (f *Formatter) EmailBody(b domain.Booking) (string, error) {
	view := emailView{
		Name:           b.Name,
		Phone:          b.Phone,
		Destination:    b.Destination,
		PickupLocation: b.PickupLocation,
		Adults:         b.Adults,
		Kids:           b.Kids,
		Infants:        b.Infants,
		PickupDate:     b.PickupDateString(),
		PickupTime:     b.PickupTime.String(),
		Luggage:        b.Luggage.String(),
		Notes:          b.Notes,
	}
	if b.Phone != "" {
		view.ChatLink = ChatLink(f.linkBase, b.Phone)
	}

	var buf bytes.Buffer
	var err error
	if f.html {
		err = htmlBody.Execute(&buf, view)
	} else {
		err = textBody.Execute(&buf, view)
	}
	if err != nil {
		return "", fmt.Errorf("render email body: %w", err)
	}
	return buf.String(), nil
}

// ChatMessage flattens the booking into one line of "Label: value" pairs.
func ChatMessage(b domain.Booking) string {
	return fmt.Sprintf(
		"New Booking: %s, Phone: %s, Destination: %s, Pickup Location: %s, Adults: %d, Kids: %d, Infants: %d, Pickup Date: %s, Pickup Time: %s, Luggage: %s, Notes: %s",
		b.Name,
		b.Phone,
		b.Destination,
		b.PickupLocation,
		b.Adults,
		b.Kids,
		b.Infants,
		b.PickupDateString(),
		b.PickupTime.String(),
		b.Luggage.String(),
		b.Notes,
	)
}

// ChatLink builds a tap-to-chat URL. Only spaces are removed from the phone.
func ChatLink(base, phone string) string {
	return base + strings.ReplaceAll(phone, " ", "")
}

type emailView struct {
	Name           string
	Phone          string
	ChatLink       string
	Destination    string
	PickupLocation string
	Adults         int
	Kids           int
	Infants        int
	PickupDate     string
	PickupTime     string
	Luggage        string
	Notes          string
}
