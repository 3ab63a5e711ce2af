package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/basebot/internal/bot/plugins"
)

// NewPingHandler returns a handler that replies and then edits the reply with the
// measured round trip.
func NewPingHandler(deps CommandDeps) plugins.HandlerFunc {
	return pingHandler{deps}.Handle
}

type pingHandler struct {
	deps CommandDeps
}

func (h pingHandler) Handle(ctx context.Context, req *plugins.Request) error {
	key, err := req.Reply(ctx, "Pong!")
	if err != nil {
		return fmt.Errorf("failed to send pong: %w", err)
	}

	latency := time.Since(req.Received)
	if err := req.Edit(ctx, key, fmt.Sprintf("Pong! %dms", latency.Milliseconds())); err != nil {
		req.Logger.WarnContext(ctx, "Failed to edit pong with latency", "error", err)
	}
	return nil
}
