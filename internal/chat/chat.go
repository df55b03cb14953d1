// Package chat sends operator notifications through a WhatsApp relay that
// accepts one HTTP GET per message.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dad1755/ktransport/config"
	"github.com/dad1755/ktransport/internal/domain"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	phone      string
	apiKey     string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(cfg config.ChatConfig, creds config.Credentials, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		baseURL:    cfg.BaseURL,
		phone:      creds.WhatsAppNumber,
		apiKey:     creds.APIKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send issues a single request; anything but 200 OK is a failure. Errors
// never include the request URL because it carries the API key.
func (c *Client) Send(ctx context.Context, text string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(text), nil)
	if err != nil {
		return domain.NotificationError{Channel: domain.ChannelChat, Err: errors.New("build relay request")}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NotificationError{Channel: domain.ChannelChat, Err: stripURL(err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return domain.NotificationError{
			Channel: domain.ChannelChat,
			Err:     fmt.Errorf("relay responded with status %d", resp.StatusCode),
		}
	}
	return nil
}

func (c *Client) requestURL(text string) string {
	q := url.Values{}
	q.Set("phone", c.phone)
	q.Set("text", text)
	q.Set("apikey", c.apiKey)
	return c.baseURL + "?" + q.Encode()
}

func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s relay: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
