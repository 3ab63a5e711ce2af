package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgard/basebot/internal/message"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, "warn", true)
	log.Info("hidden")
	log.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, "debug", false)

	called := 0
	h := Middleware(log)(func(context.Context, *message.Raw) { called++ })

	h(context.Background(), &message.Raw{
		Key:     message.Key{RemoteJID: "1@g.us", Participant: "2@s.whatsapp.net", ID: "M1"},
		Message: &message.Content{Conversation: strings.Repeat("x", 80)},
	})
	h(context.Background(), nil)

	assert.Equal(t, 2, called)
	out := buf.String()
	assert.Contains(t, out, "Processing message")
	assert.Contains(t, out, "Finished processing message")
	assert.Contains(t, out, "message_id=M1")
	assert.Contains(t, out, "sender=2@s.whatsapp.net")
	assert.Contains(t, out, strings.Repeat("x", 47)+"...")
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijkl", 10))
	assert.Equal(t, "...", truncateString("abcdef", 3))
	assert.Equal(t, "ééé...", truncateString("éééééééé", 6))
}
