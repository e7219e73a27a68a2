// Package forward posts canonical envelopes to the application backend.
package forward

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Aquillum/LiteClaw/internal/channel"
)

const DefaultTimeout = 10 * time.Second

// Client forwards envelopes with one POST each. The response body is ignored.
type Client struct {
	url    string
	http   *resty.Client
	logger *slog.Logger
}

func NewClient(log *slog.Logger, url string, timeout time.Duration) *Client {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "liteclaw-bridge")
	return &Client{
		url:    strings.TrimSpace(url),
		http:   httpClient,
		logger: log.With(slog.String("component", "forwarder")),
	}
}

// URL returns the backend endpoint.
func (c *Client) URL() string {
	return c.url
}

// Forward implements channel.Forwarder.
func (c *Client) Forward(ctx context.Context, env channel.Envelope) error {
	if c.url == "" {
		return fmt.Errorf("backend url not configured")
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(env).
		Post(c.url)
	if err != nil {
		return err
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("backend responded %s", resp.Status())
	}
	c.logger.Debug("forwarded",
		slog.String("platform", env.Platform.String()),
		slog.String("message_id", env.MessageID),
		slog.Int("status", resp.StatusCode()),
		slog.Duration("latency", resp.Time()),
	)
	return nil
}
