package telegram

import (
	"fmt"
	"log/slog"
	"strings"
)

// slogBotLogger routes tgbotapi's package logger through slog. The library only
// logs polling failures, so everything lands at warn.
type slogBotLogger struct {
	log *slog.Logger
}

func (s *slogBotLogger) Println(v ...any) {
	s.log.Warn(strings.TrimSpace(fmt.Sprintln(v...)), slog.String("source", "tgbotapi"))
}

func (s *slogBotLogger) Printf(format string, v ...any) {
	s.log.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("source", "tgbotapi"))
}
