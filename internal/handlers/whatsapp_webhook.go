package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Aquillum/LiteClaw/internal/channel"
)

const maxWebhookBytes = 4 << 20

// CloudWebhook verifies and decodes WhatsApp Cloud API webhook deliveries.
type CloudWebhook interface {
	VerifySubscription(mode, token, challenge string) (string, bool)
	ParseWebhook(body []byte) ([]channel.Envelope, error)
}

// WhatsAppWebhookHandler receives Cloud API deliveries. Without a cloud
// client every verification is refused and deliveries are dropped.
type WhatsAppWebhookHandler struct {
	webhook CloudWebhook
	emitter channel.Emitter
	logger  *slog.Logger
}

func NewWhatsAppWebhookHandler(log *slog.Logger, webhook CloudWebhook, emitter channel.Emitter) *WhatsAppWebhookHandler {
	return &WhatsAppWebhookHandler{
		webhook: webhook,
		emitter: emitter,
		logger:  log.With(slog.String("handler", "whatsapp_webhook")),
	}
}

func (h *WhatsAppWebhookHandler) Register(e *echo.Echo) {
	e.GET("/whatsapp/webhook", h.Verify)
	e.POST("/whatsapp/webhook", h.Receive)
}

// Verify answers the subscription handshake with the plain challenge.
func (h *WhatsAppWebhookHandler) Verify(c echo.Context) error {
	if h.webhook == nil {
		return c.NoContent(http.StatusForbidden)
	}
	challenge, ok := h.webhook.VerifySubscription(
		c.QueryParam("hub.mode"),
		c.QueryParam("hub.verify_token"),
		c.QueryParam("hub.challenge"),
	)
	if !ok {
		h.logger.Warn("webhook verification rejected")
		return c.NoContent(http.StatusForbidden)
	}
	return c.String(http.StatusOK, challenge)
}

// Receive always acknowledges so the Graph API does not retry.
func (h *WhatsAppWebhookHandler) Receive(c echo.Context) error {
	if h.webhook == nil || h.emitter == nil {
		return c.NoContent(http.StatusOK)
	}
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBytes))
	if err != nil {
		h.logger.Warn("webhook read failed", slog.Any("error", err))
		return c.NoContent(http.StatusOK)
	}
	envelopes, err := h.webhook.ParseWebhook(body)
	if err != nil {
		h.logger.Warn("webhook decode failed", slog.Any("error", err))
		return c.NoContent(http.StatusOK)
	}
	for _, env := range envelopes {
		h.emitter.Emit(c.Request().Context(), env)
	}
	return c.NoContent(http.StatusOK)
}
