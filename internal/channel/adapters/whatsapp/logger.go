package whatsapp

import (
	"context"
	"fmt"
	"log/slog"

	waLog "go.mau.fi/whatsmeow/util/log"
)

// waSlogLogger adapts slog.Logger to whatsmeow's logger interface.
type waSlogLogger struct {
	logger *slog.Logger
}

func newWASlogLogger(logger *slog.Logger, module string) waLog.Logger {
	return &waSlogLogger{logger: logger.With(slog.String("module", module))}
}

func (l *waSlogLogger) Debugf(msg string, args ...any) {
	l.log(slog.LevelDebug, msg, args...)
}

func (l *waSlogLogger) Infof(msg string, args ...any) {
	l.log(slog.LevelInfo, msg, args...)
}

func (l *waSlogLogger) Warnf(msg string, args ...any) {
	l.log(slog.LevelWarn, msg, args...)
}

func (l *waSlogLogger) Errorf(msg string, args ...any) {
	l.log(slog.LevelError, msg, args...)
}

func (l *waSlogLogger) Sub(module string) waLog.Logger {
	return &waSlogLogger{logger: l.logger.With(slog.String("sub", module))}
}

func (l *waSlogLogger) log(level slog.Level, msg string, args ...any) {
	if !l.logger.Enabled(context.Background(), level) {
		return
	}
	l.logger.Log(context.Background(), level, "whatsmeow", slog.String("detail", fmt.Sprintf(msg, args...)))
}
