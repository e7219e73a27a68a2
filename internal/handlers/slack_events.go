package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

const maxSlackEventBytes = 1 << 20

// SlackEventsHandler answers the Events API request URL. Events themselves
// arrive over socket mode, so only url_verification is handled here.
type SlackEventsHandler struct {
	signingSecret string
	logger        *slog.Logger
}

func NewSlackEventsHandler(log *slog.Logger, signingSecret string) *SlackEventsHandler {
	return &SlackEventsHandler{
		signingSecret: signingSecret,
		logger:        log.With(slog.String("handler", "slack_events")),
	}
}

func (h *SlackEventsHandler) Register(e *echo.Echo) {
	e.POST("/slack/events", h.Events)
}

func (h *SlackEventsHandler) Events(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxSlackEventBytes))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "read body failed")
	}
	if h.signingSecret != "" {
		if err := h.verify(c.Request().Header, body); err != nil {
			h.logger.Warn("slack signature rejected", slog.Any("error", err))
			return c.NoContent(http.StatusUnauthorized)
		}
	}
	if !json.Valid(body) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		h.logger.Debug("slack event ignored", slog.Any("error", err))
		return c.NoContent(http.StatusOK)
	}
	if event.Type == slackevents.URLVerification {
		if verification, ok := event.Data.(*slackevents.EventsAPIURLVerificationEvent); ok {
			return c.JSON(http.StatusOK, map[string]string{"challenge": verification.Challenge})
		}
	}
	return c.NoContent(http.StatusOK)
}

func (h *SlackEventsHandler) verify(header http.Header, body []byte) error {
	verifier, err := slackapi.NewSecretsVerifier(header, h.signingSecret)
	if err != nil {
		return err
	}
	if _, err := verifier.Write(body); err != nil {
		return err
	}
	return verifier.Ensure()
}
