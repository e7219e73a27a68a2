package channel

import (
	"context"
	"log/slog"
	"strings"
)

// SendObserver is notified of every dispatch outcome.
type SendObserver interface {
	ObserveSend(platform Platform, op string, err error)
}

// Dispatcher routes outbound requests to the adapter of the requested platform.
type Dispatcher struct {
	registry *Registry
	observer SendObserver
	logger   *slog.Logger
}

func NewDispatcher(log *slog.Logger, registry *Registry, observer SendObserver) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		observer: observer,
		logger:   log.With(slog.String("component", "dispatcher")),
	}
}

// Send validates req and delivers it. Validation runs before any transport call.
func (d *Dispatcher) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if err := req.Validate(); err != nil {
		return SendResult{}, err
	}
	platform, err := ParsePlatform(req.Platform.String())
	if err != nil {
		return SendResult{}, err
	}
	req.Platform = platform
	req.To = strings.TrimSpace(req.To)
	if req.IsMedia {
		req.Type = ParseMediaType(string(req.Type))
	}
	sender, ok := d.registry.Sender(platform)
	if !ok {
		err := &NotInitializedError{Platform: platform, Detail: platform.String() + " is not enabled"}
		d.observe(platform, "send", err)
		return SendResult{}, err
	}
	result, err := sender.Send(ctx, req)
	err = NewTransportError(platform, "send", err)
	d.observe(platform, "send", err)
	if err != nil {
		d.logger.Error("send failed",
			slog.String("platform", platform.String()),
			slog.String("to", req.To),
			slog.Bool("media", req.IsMedia),
			slog.Any("error", err),
		)
		return SendResult{}, err
	}
	result.Platform = platform
	return result, nil
}

// Typing starts (on=true) or stops the typing indicator for req.To.
func (d *Dispatcher) Typing(ctx context.Context, req TypingRequest, on bool) (SendResult, error) {
	if strings.TrimSpace(req.To) == "" {
		return SendResult{}, &ValidationError{Field: "to", Message: "Missing 'to'"}
	}
	platform, err := ParsePlatform(req.Platform.String())
	if err != nil {
		return SendResult{}, err
	}
	op := "typing"
	if !on {
		op = "stop-typing"
	}
	if trivialTyping(platform, on) {
		return SendResult{Platform: platform}, nil
	}
	if _, enabled := d.registry.Get(platform); !enabled {
		err := &NotInitializedError{Platform: platform, Detail: platform.String() + " is not enabled"}
		d.observe(platform, op, err)
		return SendResult{}, err
	}
	typer, ok := d.registry.Typer(platform)
	if !ok {
		// no native indicator, report success
		return SendResult{Platform: platform}, nil
	}
	to := strings.TrimSpace(req.To)
	if on {
		err = typer.StartTyping(ctx, to)
	} else {
		err = typer.StopTyping(ctx, to)
	}
	err = NewTransportError(platform, op, err)
	d.observe(platform, op, err)
	if err != nil {
		d.logger.Warn("typing failed", slog.String("platform", platform.String()), slog.String("op", op), slog.Any("error", err))
		return SendResult{}, err
	}
	return SendResult{Platform: platform}, nil
}

// trivialTyping reports requests that succeed without a bot: Slack has no typing
// indicator and Telegram's chat action expires on its own.
func trivialTyping(platform Platform, on bool) bool {
	return platform == PlatformSlack || (platform == PlatformTelegram && !on)
}

func (d *Dispatcher) observe(platform Platform, op string, err error) {
	if d.observer != nil {
		d.observer.ObserveSend(platform, op, err)
	}
}
