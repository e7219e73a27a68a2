package slack

import (
	"log/slog"
	"strings"
)

// slackSlogLogger satisfies the Output logger slack-go and socketmode accept.
type slackSlogLogger struct {
	logger *slog.Logger
}

func newSlackSlogLogger(logger *slog.Logger) *slackSlogLogger {
	return &slackSlogLogger{logger: logger}
}

func (l *slackSlogLogger) Output(_ int, s string) error {
	l.logger.Debug("slack sdk", slog.String("detail", strings.TrimSpace(s)))
	return nil
}
