package handlers

import (
	"log/slog"
	"maps"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Aquillum/LiteClaw/internal/channel"
	"github.com/Aquillum/LiteClaw/internal/version"
)

// ConnectionChecker reports whether a platform's receive loop is running.
type ConnectionChecker interface {
	Connected(platform channel.Platform) bool
}

// StatusHandler serves liveness and per-platform state.
type StatusHandler struct {
	registry    *channel.Registry
	connections ConnectionChecker
	started     time.Time
	logger      *slog.Logger
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Version   string                    `json:"version"`
	Uptime    string                    `json:"uptime"`
	Platforms map[string]map[string]any `json:"platforms"`
}

func NewStatusHandler(log *slog.Logger, registry *channel.Registry, connections ConnectionChecker) *StatusHandler {
	return &StatusHandler{
		registry:    registry,
		connections: connections,
		started:     time.Now(),
		logger:      log.With(slog.String("handler", "status")),
	}
}

// Register mounts GET /ping, HEAD /health and GET /status.
func (h *StatusHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
	e.HEAD("/health", h.PingHead)
	e.GET("/status", h.Status)
}

// Ping returns 200 JSON {"status":"ok"}.
func (h *StatusHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// PingHead returns 200 No Content for health checks.
func (h *StatusHandler) PingHead(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (h *StatusHandler) Status(c echo.Context) error {
	platforms := make(map[string]map[string]any, len(channel.Platforms))
	for _, platform := range channel.Platforms {
		platforms[platform.String()] = h.platformStatus(platform)
	}
	return c.JSON(http.StatusOK, StatusResponse{
		Version:   version.GetInfo(),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Platforms: platforms,
	})
}

func (h *StatusHandler) platformStatus(platform channel.Platform) map[string]any {
	if h.registry == nil {
		return map[string]any{"enabled": false}
	}
	adapter, ok := h.registry.Get(platform)
	if !ok {
		return map[string]any{"enabled": false}
	}
	status := map[string]any{"enabled": true}
	if reporter, ok := adapter.(channel.StatusReporter); ok {
		maps.Copy(status, reporter.Status())
	}
	if _, ok := adapter.(channel.Receiver); ok && h.connections != nil {
		status["receiving"] = h.connections.Connected(platform)
	}
	return status
}
