package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dad1755/ktransport/internal/domain"
	"github.com/dad1755/ktransport/internal/email"
	"github.com/dad1755/ktransport/internal/kafka"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	Submit(ctx context.Context, form *domain.FormState) (*Outcome, error)
}

type EmailSender interface {
	Send(ctx context.Context, msg email.Message) error
}

type ChatSender interface {
	Send(ctx context.Context, text string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// DefaultPublishTimeout bounds one submission event write.
const DefaultPublishTimeout = 2 * time.Second

// Stage names a step of the submission cycle; it only shows up in logs.
type Stage string

const (
	StageValidating Stage = "validating"
	StageFormatting Stage = "formatting"
	StageNotifying  Stage = "notifying"
	StageIdle       Stage = "idle"
)

// Outcome describes a submission whose email went out. The chat result is
// informational: a failed chat does not undo the confirmation.
type Outcome struct {
	ID            string         `json:"id"`
	Confirmation  string         `json:"confirmation"`
	Booking       domain.Booking `json:"booking"`
	ChatDelivered bool           `json:"chat_delivered"`
	ChatError     string         `json:"chat_error,omitempty"`
}

type BookingService struct {
	formatter        *Formatter
	email            EmailSender
	chat             ChatSender
	producer         Producer
	submissionsTopic string
	publishTimeout   time.Duration
	logger           *zap.Logger
	now              func() time.Time
}

type BookingServiceOption func(*BookingService)

func WithEventProducer(producer Producer, topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.submissionsTopic = topic
	}
}

// WithPublishTimeout overrides DefaultPublishTimeout.
func WithPublishTimeout(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.publishTimeout = d
	}
}

func WithLogger(logger *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(formatter *Formatter, emailSender EmailSender, chat ChatSender, opts ...BookingServiceOption) *BookingService {
	service := &BookingService{
		formatter:      formatter,
		email:          emailSender,
		chat:           chat,
		logger:         zap.NewNop(),
		publishTimeout: DefaultPublishTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Submit runs one submission cycle against form. The form is reset only
// after the email went out; on any error it is left exactly as it was.
// The chat message is attempted only after a successful email.
func (s *BookingService) Submit(ctx context.Context, form *domain.FormState) (*Outcome, error) {
	if form == nil {
		return nil, errors.New("form state is required")
	}

	id := uuid.NewString()
	log := s.logger.With(zap.String("submission_id", id))

	log.Debug("submission stage", zap.String("stage", string(StageValidating)))
	booking := form.Snapshot()
	if err := Validate(booking); err != nil {
		log.Info("submission rejected", zap.Error(err))
		return nil, err
	}

	log.Debug("submission stage", zap.String("stage", string(StageFormatting)))
	rendered, err := s.formatter.Render(booking)
	if err != nil {
		return nil, fmt.Errorf("format booking: %w", err)
	}

	log.Debug("submission stage", zap.String("stage", string(StageNotifying)))
	if err := s.email.Send(ctx, rendered.Email); err != nil {
		if !domain.IsNotification(err) {
			err = domain.NotificationError{Channel: domain.ChannelEmail, Err: err}
		}
		log.Warn("booking email failed", zap.Error(err))
		s.publish(ctx, kafka.SubmissionEvent{
			Type:         kafka.EventSubmissionFailed,
			SubmissionID: id,
			Destination:  booking.Destination,
			PickupDate:   booking.PickupDateString(),
			Passengers:   booking.Passengers(),
			Error:        err.Error(),
			SubmittedAt:  s.now(),
		})
		return nil, err
	}

	form.Reset(s.now())

	outcome := &Outcome{
		ID:           id,
		Confirmation: fmt.Sprintf("Booking Confirmed for %s!", booking.Name),
		Booking:      booking,
	}
	if s.chat != nil {
		if err := s.chat.Send(ctx, rendered.Chat); err != nil {
			log.Warn("booking chat message failed", zap.Error(err))
			outcome.ChatError = err.Error()
		} else {
			outcome.ChatDelivered = true
		}
	}

	log.Info("booking submitted",
		zap.Bool("chat_delivered", outcome.ChatDelivered),
		zap.String("stage", string(StageIdle)),
	)
	s.publish(ctx, kafka.SubmissionEvent{
		Type:         kafka.EventSubmissionConfirmed,
		SubmissionID: id,
		Destination:  booking.Destination,
		PickupDate:   booking.PickupDateString(),
		Passengers:   booking.Passengers(),
		EmailSent:    true,
		ChatSent:     outcome.ChatDelivered,
		Error:        outcome.ChatError,
		SubmittedAt:  s.now(),
	})
	return outcome, nil
}

// publish is best-effort: it waits at most publishTimeout and never fails the submission.
func (s *BookingService) publish(ctx context.Context, event kafka.SubmissionEvent) {
	if s.producer == nil || s.submissionsTopic == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.producer.Publish(ctx, s.submissionsTopic, event.SubmissionID, event); err != nil {
		s.logger.Warn("failed to publish submission event",
			zap.String("submission_id", event.SubmissionID),
			zap.String("type", event.Type),
			zap.Error(err),
		)
	}
}

var _ BookingUseCase = (*BookingService)(nil)
