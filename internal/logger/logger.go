// Package logger provides structured logging for the bot.
// It uses Go's slog package with configurable levels and formats.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/edgard/basebot/internal/message"
)

// NewLogger creates a new slog Logger writing to stdout with the specified level.
// If jsonOutput is true, logs are formatted as JSON, otherwise as text.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	return New(os.Stdout, levelStr, jsonOutput)
}

// New is NewLogger with an explicit destination.
func New(w io.Writer, levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(levelStr)}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MessageHandler processes one inbound message.
type MessageHandler func(ctx context.Context, raw *message.Raw)

// Middleware wraps a MessageHandler and logs the start, finish and duration of each
// processed message.
func Middleware(log *slog.Logger) func(MessageHandler) MessageHandler {
	return func(next MessageHandler) MessageHandler {
		return func(ctx context.Context, raw *message.Raw) {
			if raw == nil {
				next(ctx, raw)
				return
			}
			startTime := time.Now()

			logEntry := log.With(
				"message_id", raw.Key.ID,
				"chat_id", raw.Key.RemoteJID,
				"from_me", raw.Key.FromMe,
			)
			if raw.Key.Participant != "" {
				logEntry = logEntry.With("sender", raw.Key.Participant)
			}
			if text := message.Text(raw.Message); text != "" {
				logEntry = logEntry.With("text_preview", truncateString(text, 50))
			}
			logEntry = logEntry.With("message_type", raw.Message.Type())

			logEntry.DebugContext(ctx, "Processing message")

			next(ctx, raw)

			logEntry.DebugContext(ctx, "Finished processing message", "duration", time.Since(startTime))
		}
	}
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}
