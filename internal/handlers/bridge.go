package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Aquillum/LiteClaw/internal/channel"
)

// BridgeHandler serves the outbound send and typing endpoints used by the backend.
// The /whatsapp prefix is kept for every platform.
type BridgeHandler struct {
	dispatcher *channel.Dispatcher
	logger     *slog.Logger
}

func NewBridgeHandler(log *slog.Logger, dispatcher *channel.Dispatcher) *BridgeHandler {
	return &BridgeHandler{
		dispatcher: dispatcher,
		logger:     log.With(slog.String("handler", "bridge")),
	}
}

func (h *BridgeHandler) Register(e *echo.Echo) {
	e.POST("/whatsapp/send", h.Send)
	e.POST("/whatsapp/typing", h.StartTyping)
	e.POST("/whatsapp/stop-typing", h.StopTyping)
}

// Send delivers a text or media message.
func (h *BridgeHandler) Send(c echo.Context) error {
	var req channel.SendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	result, err := h.dispatcher.Send(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{
		Success:  true,
		ID:       result.ID,
		Platform: result.Platform,
	})
}

func (h *BridgeHandler) StartTyping(c echo.Context) error {
	return h.typing(c, true)
}

func (h *BridgeHandler) StopTyping(c echo.Context) error {
	return h.typing(c, false)
}

func (h *BridgeHandler) typing(c echo.Context, on bool) error {
	var req channel.TypingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	result, err := h.dispatcher.Typing(c.Request().Context(), req, on)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{
		Success:  true,
		Platform: result.Platform,
	})
}
