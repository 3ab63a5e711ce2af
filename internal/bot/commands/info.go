package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/edgard/basebot/internal/bot/plugins"
)

const statsWindow = 24 * time.Hour

// NewHelpHandler returns a handler listing the registered commands. Owner-only
// commands are only listed for owners.
func NewHelpHandler(deps CommandDeps) plugins.HandlerFunc {
	return helpHandler{deps}.Handle
}

type helpHandler struct {
	deps CommandDeps
}

func (h helpHandler) Handle(ctx context.Context, req *plugins.Request) error {
	inv := req.Invocation
	isOwner := h.deps.Config.Bot.IsOwner(inv.Sender, inv.SenderAlt)

	prefix := inv.Prefix
	if len(h.deps.Config.Bot.Prefixes) > 0 {
		prefix = h.deps.Config.Bot.Prefixes[0]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s* commands:\n", h.deps.Config.Bot.Name)
	for _, p := range req.Registry.Plugins() {
		if p.OwnerOnly && !isOwner {
			continue
		}
		fmt.Fprintf(&sb, "\n%s%s", prefix, strings.Join(p.Commands, " | "+prefix))
		if p.Description != "" {
			sb.WriteString(" - " + p.Description)
		}
	}

	_, err := req.Reply(ctx, sb.String())
	return err
}

// NewCheckAdminHandler returns a handler reporting the admin status of the sender and
// the bot in the current group.
func NewCheckAdminHandler(deps CommandDeps) plugins.HandlerFunc {
	return checkAdminHandler{deps}.Handle
}

type checkAdminHandler struct {
	deps CommandDeps
}

func (h checkAdminHandler) Handle(ctx context.Context, req *plugins.Request) error {
	inv := req.Invocation
	g, err := req.Groups.Ensure(ctx, inv.Chat)
	if err != nil {
		replyError(ctx, req, h.deps.Config.Bot.Messages.Error)
		return fmt.Errorf("failed to load group metadata: %w", err)
	}

	self := req.Client.Self()
	senderAdmin := g.IsAdmin(inv.Sender) || (inv.SenderAlt != "" && g.IsAdmin(inv.SenderAlt))
	botAdmin := g.IsAdmin(self.ID) || (self.LID != "" && g.IsAdmin(self.LID))

	text := fmt.Sprintf("Group: %s\nMembers: %d\nYou are admin: %s\nBot is admin: %s",
		g.Subject, g.Size, yesNo(senderAdmin), yesNo(botAdmin))
	_, err = req.Reply(ctx, text)
	return err
}

// NewReloadHandler returns a handler that rebuilds the plugin list.
func NewReloadHandler(deps CommandDeps) plugins.HandlerFunc {
	return reloadHandler{deps}.Handle
}

type reloadHandler struct {
	deps CommandDeps
}

func (h reloadHandler) Handle(ctx context.Context, req *plugins.Request) error {
	if err := req.Registry.Reload(); err != nil {
		req.Logger.ErrorContext(ctx, "Plugin reload failed", "error", err)
		_, sendErr := req.Reply(ctx, "Reload failed: "+err.Error())
		return sendErr
	}

	_, err := req.Reply(ctx, fmt.Sprintf("Reloaded %d plugins.", len(req.Registry.Plugins())))
	return err
}

// NewStatsHandler returns a handler summarizing the audit log.
func NewStatsHandler(deps CommandDeps) plugins.HandlerFunc {
	return statsHandler{deps}.Handle
}

type statsHandler struct {
	deps CommandDeps
}

func (h statsHandler) Handle(ctx context.Context, req *plugins.Request) error {
	if h.deps.Store == nil {
		_, err := req.Reply(ctx, "No audit log is configured.")
		return err
	}

	stats, err := h.deps.Store.CommandStats(ctx, req.Received.Add(-statsWindow))
	if err != nil {
		replyError(ctx, req, h.deps.Config.Bot.Messages.Error)
		return fmt.Errorf("failed to load command stats: %w", err)
	}
	if len(stats) == 0 {
		_, err = req.Reply(ctx, "No commands recorded in the last 24 hours.")
		return err
	}

	var total int64
	var sb strings.Builder
	sb.WriteString("Command usage, last 24 hours:\n")
	for _, s := range stats {
		fmt.Fprintf(&sb, "\n%s: %d", s.Command, s.Count)
		total += s.Count
	}
	fmt.Fprintf(&sb, "\n\nTotal: %d", total)

	_, err = req.Reply(ctx, sb.String())
	return err
}

// replyError sends text and only logs a failed send, so the handler can return the
// original error.
func replyError(ctx context.Context, req *plugins.Request, text string) {
	if _, err := req.Reply(ctx, text); err != nil {
		req.Logger.WarnContext(ctx, "Failed to send error message", "error", err)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
