package api

import (
	"net/http"

	"github.com/dad1755/ktransport/internal/middleware"
	"github.com/dad1755/ktransport/web"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires the page, the JSON API and the health check.
func NewRouter(bookings *BookingHandler, placeHandler *PlaceHandler, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	registerValidators()

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(logger), middleware.Recovery(logger))
	router.SetHTMLTemplate(web.Templates())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	bookings.RegisterPage(router)
	api := router.Group("/api")
	bookings.Register(api.Group("/booking"))
	placeHandler.Register(api.Group("/places"))

	return router
}
