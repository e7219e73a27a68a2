package channel

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownPlatform = errors.New("channel: unknown platform")
	ErrInvalidIdentity = errors.New("channel: invalid bot identity")
	ErrDuplicateBot    = errors.New("channel: bot identity already registered")
	ErrQueueFull       = errors.New("channel: inbound queue full")
	ErrInboundStopped  = errors.New("channel: inbound dispatcher stopped")
)

// ValidationError reports a malformed request. Nothing has been sent.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NotInitializedError reports that the target platform or bot is not ready.
type NotInitializedError struct {
	Platform Platform
	Detail   string
}

func (e *NotInitializedError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("%s bot not initialized", e.Platform)
}

// TransportError wraps a failed platform call.
type TransportError struct {
	Platform Platform
	Op       string
	Err      error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s failed", e.Platform, e.Op)
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ForwardError reports a backend delivery failure for one envelope. It is only logged.
type ForwardError struct {
	Platform  Platform
	MessageID string
	Err       error
}

func (e *ForwardError) Error() string {
	return fmt.Sprintf("forward %s message %s: %v", e.Platform, e.MessageID, e.Err)
}

func (e *ForwardError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err unless it is already classified.
func NewTransportError(platform Platform, op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		transportErr *TransportError
		notInitErr   *NotInitializedError
		validErr     *ValidationError
	)
	if errors.As(err, &transportErr) || errors.As(err, &notInitErr) || errors.As(err, &validErr) {
		return err
	}
	return &TransportError{Platform: platform, Op: op, Err: err}
}
