package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Aquillum/LiteClaw/internal/channel"
	"github.com/Aquillum/LiteClaw/internal/logger"
)

// ErrorResponse is the body for request validation failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FailureResponse is the body for failed platform operations.
type FailureResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	ErrorType  string `json:"errorType,omitempty"`
	ErrorStack string `json:"errorStack,omitempty"`
}

// SuccessResponse is the body for completed send and typing requests.
type SuccessResponse struct {
	Success  bool             `json:"success"`
	ID       string           `json:"id,omitempty"`
	Platform channel.Platform `json:"platform"`
}

// writeError maps a dispatch error to its status code and body.
func writeError(c echo.Context, err error) error {
	var validationErr *channel.ValidationError
	if errors.As(err, &validationErr) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: validationErr.Message})
	}
	var notInitErr *channel.NotInitializedError
	if errors.As(err, &notInitErr) {
		return c.JSON(http.StatusBadRequest, FailureResponse{
			Error:     notInitErr.Error(),
			ErrorType: "NotInitializedError",
		})
	}
	logger.FromContext(c.Request().Context()).Error("request failed",
		slog.String("path", c.Path()),
		slog.Any("error", err),
	)
	return c.JSON(http.StatusInternalServerError, FailureResponse{
		Error:      err.Error(),
		ErrorType:  errorType(err),
		ErrorStack: errorStack(err),
	})
}

// errorType names the innermost cause of err.
func errorType(err error) string {
	inner := err
	for next := errors.Unwrap(inner); next != nil; next = errors.Unwrap(inner) {
		inner = next
	}
	var transportErr *channel.TransportError
	if errors.As(inner, &transportErr) {
		return "TransportError"
	}
	return fmt.Sprintf("%T", inner)
}

// errorStack lists the unwrap chain of err, outermost first. A link whose
// message repeats its cause is skipped.
func errorStack(err error) string {
	var lines []string
	for ; err != nil; err = errors.Unwrap(err) {
		msg := err.Error()
		if next := errors.Unwrap(err); next != nil && next.Error() == msg {
			continue
		}
		lines = append(lines, msg)
	}
	return strings.Join(lines, "\n")
}
