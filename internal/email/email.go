package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/dad1755/ktransport/config"
	"github.com/dad1755/ktransport/internal/domain"
	"github.com/wneessen/go-mail"
)

// Message is a rendered email ready for delivery.
type Message struct {
	Subject string
	Body    string
	HTML    bool
}

// Sender delivers messages through an SMTP relay that requires STARTTLS and
// PLAIN authentication. Each Send opens and closes its own connection.
type Sender struct {
	host     string
	port     int
	timeout  time.Duration
	from     string
	password string
	to       string
	tls      *tls.Config
}

type SenderOption func(*Sender)

// WithTLSConfig replaces the TLS settings used for STARTTLS. The default
// verifies the relay's certificate against the system roots.
func WithTLSConfig(cfg *tls.Config) SenderOption {
	return func(s *Sender) {
		s.tls = cfg
	}
}

func NewSender(cfg config.EmailConfig, creds config.Credentials, opts ...SenderOption) *Sender {
	s := &Sender{
		host:     cfg.Host,
		port:     cfg.Port,
		timeout:  cfg.Timeout(),
		from:     creds.Email,
		password: creds.Password,
		to:       creds.Receiver,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send makes exactly one delivery attempt. Any failure comes back as a
// domain.NotificationError for the email channel.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	m, err := s.buildMessage(msg)
	if err != nil {
		return domain.NotificationError{Channel: domain.ChannelEmail, Err: err}
	}

	client, err := mail.NewClient(s.host, s.clientOptions()...)
	if err != nil {
		return domain.NotificationError{Channel: domain.ChannelEmail, Err: fmt.Errorf("create smtp client: %w", err)}
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return domain.NotificationError{Channel: domain.ChannelEmail, Err: err}
	}
	return nil
}

func (s *Sender) buildMessage(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return nil, fmt.Errorf("set sender address: %w", err)
	}
	if err := m.To(s.to); err != nil {
		return nil, fmt.Errorf("set receiver address: %w", err)
	}
	m.Subject(msg.Subject)

	contentType := mail.TypeTextPlain
	if msg.HTML {
		contentType = mail.TypeTextHTML
	}
	m.SetBodyString(contentType, msg.Body)
	return m, nil
}

func (s *Sender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.from),
		mail.WithPassword(s.password),
	}
	if s.timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.timeout))
	}
	if s.tls != nil {
		opts = append(opts, mail.WithTLSConfig(s.tls))
	}
	return opts
}
