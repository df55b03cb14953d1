package api

import (
	"net/http"

	"github.com/dad1755/ktransport/internal/service/places"
	"github.com/gin-gonic/gin"
)

type PlaceHandler struct {
	service places.PlaceUseCase
}

func NewPlaceHandler(service places.PlaceUseCase) *PlaceHandler {
	return &PlaceHandler{service: service}
}

func (h *PlaceHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
}

func (h *PlaceHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
