// Package logging builds the relay's structured loggers.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ParseLevel maps "debug", "info", "warn"/"warning" and "error" to a slog level.
// Empty input means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// New returns a logger writing to w. format is "text" (default) or "json".
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return slog.New(h), nil
}

// botLogger adapts slog to the bot library's Printf/Println logger.
type botLogger struct {
	log *slog.Logger
}

func (b botLogger) Println(v ...interface{}) {
	b.log.Debug(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (b botLogger) Printf(format string, v ...interface{}) {
	b.log.Debug(strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
}

// RouteBotLogger sends the Telegram library's internal log lines to log at debug level.
func RouteBotLogger(log *slog.Logger) error {
	return tgbotapi.SetLogger(botLogger{log: log.With("component", "tgbotapi")})
}
