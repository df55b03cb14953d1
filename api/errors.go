package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/dad1755/ktransport/internal/domain"
	"github.com/dad1755/ktransport/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// registerValidators adds the binding rules the request structs rely on to
// gin's validator. It panics when a rule cannot be registered.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic(fmt.Sprintf("unexpected binding validator engine %T", binding.Validator.Engine()))
		}
		if err := registerBindingRules(v); err != nil {
			panic(err)
		}
	})
}

func registerBindingRules(v *validator.Validate) error {
	err := v.RegisterValidation("minute5", func(fl validator.FieldLevel) bool {
		return fl.Field().Int()%5 == 0
	})
	if err != nil {
		return fmt.Errorf("register minute5 rule: %w", err)
	}
	return nil
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *gin.Context, status int, code, field, message string) {
	c.JSON(status, errorResponse{
		Error:     message,
		Code:      code,
		Field:     field,
		RequestID: middleware.GetRequestID(c),
	})
}

// respondDomainError maps domain errors to HTTP responses.
func respondDomainError(c *gin.Context, err error) {
	_ = c.Error(err)
	var verr domain.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(c, http.StatusBadRequest, "validation_error", verr.Field, verr.Error())
	case domain.IsNotification(err):
		respondError(c, http.StatusBadGateway, "notification_error", "", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "internal_error", "", "internal error")
	}
}

// bindingError turns request binding failures into a ValidationError.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := toSnake(fe.Field())
		return domain.ValidationError{Field: field, Msg: fmt.Sprintf("Invalid value for %s (%s).", field, fe.Tag())}
	}
	return domain.ValidationError{Msg: "Invalid request body."}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
