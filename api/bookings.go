package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dad1755/ktransport/internal/domain"
	"github.com/dad1755/ktransport/internal/service/booking"
	"github.com/dad1755/ktransport/internal/service/places"
	"github.com/dad1755/ktransport/web"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionStore keeps one Session per browser. Get returns nil, nil for an
// unknown or expired id. LockSession serializes requests of one session
// until the returned func is called.
type SessionStore interface {
	LockSession(ctx context.Context, id string) (func(), error)
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	SaveSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, id string) error
}

type CookieConfig struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

type BookingHandler struct {
	service  booking.BookingUseCase
	sessions SessionStore
	places   places.PlaceUseCase
	cookie   CookieConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewBookingHandler(service booking.BookingUseCase, sessions SessionStore, placeSvc places.PlaceUseCase, cookie CookieConfig, logger *zap.Logger) *BookingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingHandler{
		service:  service,
		sessions: sessions,
		places:   placeSvc,
		cookie:   cookie,
		logger:   logger,
		now:      time.Now,
	}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("/form", h.getForm)
	router.PATCH("/form", h.updateForm)
	router.DELETE("/form", h.resetForm)
	router.POST("/submit", h.submit)
}

func (h *BookingHandler) RegisterPage(router gin.IRoutes) {
	router.GET("/", h.page)
	router.POST("/", h.postPage)
}

func (h *BookingHandler) getForm(c *gin.Context) {
	session, release, err := h.loadSession(c)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	defer release()
	if err := h.saveSession(c, session); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFormResponse(session.Form))
}

func (h *BookingHandler) updateForm(c *gin.Context) {
	var req formUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondDomainError(c, bindingError(err))
		return
	}

	session, release, err := h.loadSession(c)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	defer release()
	if err := session.Form.Apply(req.toUpdate()); err != nil {
		respondDomainError(c, err)
		return
	}
	if err := h.saveSession(c, session); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFormResponse(session.Form))
}

func (h *BookingHandler) resetForm(c *gin.Context) {
	session, release, err := h.loadSession(c)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	defer release()
	session.Form.Reset(h.now())
	if err := h.saveSession(c, session); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFormResponse(session.Form))
}

func (h *BookingHandler) submit(c *gin.Context) {
	session, release, err := h.loadSession(c)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	defer release()

	outcome, err := h.service.Submit(c.Request.Context(), &session.Form)
	if saveErr := h.saveSession(c, session); saveErr != nil {
		h.logger.Error("failed to save session after submit", zap.Error(saveErr))
	}
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSubmitResponse(outcome, session.Form))
}

func (h *BookingHandler) page(c *gin.Context) {
	session, release, err := h.loadSession(c)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	defer release()

	notices := session.TakeNotices()
	confirmed := session.Confirmed
	session.Confirmed = nil
	if err := h.saveSession(c, session); err != nil {
		respondDomainError(c, err)
		return
	}

	var suggestions domain.Places
	if h.places != nil {
		if suggestions, err = h.places.List(c.Request.Context()); err != nil {
			h.logger.Warn("failed to load places", zap.Error(err))
		}
	}
	c.HTML(http.StatusOK, web.BookingPage, newPageView(session, suggestions, notices, confirmed))
}

// postPage handles the HTML form and always redirects back to the page.
func (h *BookingHandler) postPage(c *gin.Context) {
	session, release, err := h.loadSession(c)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	defer release()

	switch c.PostForm("action") {
	case "reset":
		session.Form.Reset(h.now())
	default:
		var req formUpdateRequest
		if err := c.ShouldBind(&req); err != nil {
			session.Notices = append(session.Notices, errorNotice(bindingError(err)))
			break
		}
		if err := session.Form.Apply(req.toUpdate()); err != nil {
			session.Notices = append(session.Notices, errorNotice(err))
			break
		}
		if c.PostForm("action") == "submit" {
			h.submitFromPage(c, session)
		}
	}

	if err := h.saveSession(c, session); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *BookingHandler) submitFromPage(c *gin.Context, session *domain.Session) {
	outcome, err := h.service.Submit(c.Request.Context(), &session.Form)
	if err != nil {
		session.Notices = append(session.Notices, errorNotice(err))
		return
	}

	confirmed := outcome.Booking
	session.Confirmed = &confirmed
	session.Notices = append(session.Notices,
		domain.Notice{Kind: domain.NoticeSuccess, Text: outcome.Confirmation},
		domain.Notice{Kind: domain.NoticeSuccess, Text: "Booking email sent successfully!"},
	)
	if outcome.ChatDelivered {
		session.Notices = append(session.Notices, domain.Notice{Kind: domain.NoticeSuccess, Text: "WhatsApp message sent successfully!"})
	} else if outcome.ChatError != "" {
		session.Notices = append(session.Notices, domain.Notice{
			Kind:    domain.NoticeWarning,
			Text:    "Failed to send WhatsApp message.",
			Details: []string{outcome.ChatError},
		})
	}
}

func errorNotice(err error) domain.Notice {
	switch {
	case domain.IsValidation(err):
		return domain.Notice{Kind: domain.NoticeError, Text: err.Error()}
	case domain.IsNotification(err):
		return domain.Notice{Kind: domain.NoticeError, Text: "Failed to send email.", Details: []string{err.Error()}}
	default:
		return domain.Notice{Kind: domain.NoticeError, Text: "Something went wrong, please try again."}
	}
}

// loadSession finds the caller's session from the cookie or starts a new one.
// An existing session stays locked until the returned func is called.
func (h *BookingHandler) loadSession(c *gin.Context) (*domain.Session, func(), error) {
	ctx := c.Request.Context()
	if id, err := c.Cookie(h.cookie.Name); err == nil {
		if _, err := uuid.Parse(id); err == nil {
			unlock, err := h.sessions.LockSession(ctx, id)
			if err != nil {
				return nil, nil, err
			}
			session, err := h.sessions.GetSession(ctx, id)
			if err != nil {
				unlock()
				return nil, nil, err
			}
			if session != nil {
				return session, unlock, nil
			}
			unlock()
		}
	}

	session := domain.NewSession(uuid.NewString(), h.now())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, session.ID, int(h.cookie.MaxAge.Seconds()), "/", "", h.cookie.Secure, true)
	return session, func() {}, nil
}

func (h *BookingHandler) saveSession(c *gin.Context, session *domain.Session) error {
	session.UpdatedAt = h.now()
	return h.sessions.SaveSession(c.Request.Context(), session)
}
