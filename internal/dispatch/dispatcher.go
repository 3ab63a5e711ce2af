// Package dispatch routes inbound messages to command plugins.
//
// Each message goes through a fixed pipeline: normalize, run the filter chain, record
// the invocation, apply the bot mode, look the command up, check permission gates in
// order (owner, group, admin), then invoke the plugin. Every stage that rejects the
// message ends the pipeline; at most one refusal message is sent.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/edgard/basebot/internal/bot/filters"
	"github.com/edgard/basebot/internal/bot/plugins"
	"github.com/edgard/basebot/internal/client"
	"github.com/edgard/basebot/internal/config"
	"github.com/edgard/basebot/internal/database"
	"github.com/edgard/basebot/internal/groupcache"
	"github.com/edgard/basebot/internal/message"
)

// Outcome describes how a dispatch ended.
type Outcome int

// Dispatch outcomes.
const (
	Filtered Outcome = iota
	Ignored
	ModeRestricted
	UnknownCommand
	RefusedOwner
	RefusedGroup
	RefusedAdmin
	RefusedBotAdmin
	MetadataUnavailable
	Invoked
	Failed
)

var outcomeNames = [...]string{
	Filtered:            "filtered",
	Ignored:             "ignored",
	ModeRestricted:      "mode_restricted",
	UnknownCommand:      "unknown_command",
	RefusedOwner:        "refused_owner",
	RefusedGroup:        "refused_group",
	RefusedAdmin:        "refused_admin",
	RefusedBotAdmin:     "refused_bot_admin",
	MetadataUnavailable: "metadata_unavailable",
	Invoked:             "invoked",
	Failed:              "failed",
}

func (o Outcome) String() string {
	if o >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Deps provides the dispatcher's collaborators. Store may be nil to disable the audit
// log.
type Deps struct {
	Logger     *slog.Logger
	Config     *config.Config
	Client     client.Client
	Groups     *groupcache.Cache
	Normalizer *message.Normalizer
	Chain      *filters.Chain
	Registry   *plugins.Registry
	Store      database.Store
}

// Dispatcher runs the per-message pipeline.
type Dispatcher struct {
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Dispatcher.
func New(deps Deps) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Chain == nil {
		deps.Chain = filters.NewChain(logger)
	}
	return &Dispatcher{deps: deps, logger: logger.With("component", "dispatcher"), now: time.Now}
}

// Handle dispatches raw and discards the outcome. It matches logger.MessageHandler.
func (d *Dispatcher) Handle(ctx context.Context, raw *message.Raw) {
	d.Dispatch(ctx, raw)
}

// Dispatch runs the pipeline for one message. It never returns an error: failures are
// logged and reported through the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, raw *message.Raw) Outcome {
	received := d.now()
	inv := d.deps.Normalizer.Normalize(raw)

	if !d.deps.Chain.RunAll(ctx, inv) {
		return Filtered
	}
	if inv.Text == "" || inv.Prefix == "" {
		return Ignored
	}

	log := d.logger.With("chat_id", inv.Chat, "sender", inv.Sender, "message_id", inv.ID)
	log.InfoContext(ctx, "Command received", "prefix", inv.Prefix, "command", inv.Command, "args", inv.Args)
	d.audit(ctx, log, inv)

	if inv.Command == "" {
		return Ignored
	}

	botCfg := d.deps.Config.Bot
	isOwner := botCfg.IsOwner(inv.Sender, inv.SenderAlt)

	if !isOwner && !modeAllows(botCfg.Mode, inv.IsGroup) {
		log.DebugContext(ctx, "Command outside bot mode", "mode", botCfg.Mode)
		return ModeRestricted
	}

	plugin, ok := d.deps.Registry.Lookup(inv.Command)
	if !ok {
		log.DebugContext(ctx, "Unknown command", "command", inv.Command)
		return UnknownCommand
	}
	log = log.With("plugin", plugin.Name)

	msgs := botCfg.Messages
	if plugin.OwnerOnly && !isOwner {
		d.refuse(ctx, log, inv, msgs.OwnerOnly)
		return RefusedOwner
	}
	if plugin.GroupOnly && !inv.IsGroup {
		d.refuse(ctx, log, inv, msgs.GroupOnly)
		return RefusedGroup
	}
	if plugin.AdminOnly && inv.IsGroup {
		g, err := d.deps.Groups.Ensure(ctx, inv.Chat)
		if err != nil {
			log.WarnContext(ctx, "Group metadata unavailable, aborting", "error", err)
			return MetadataUnavailable
		}
		if !g.IsAdmin(inv.Sender) && (inv.SenderAlt == "" || !g.IsAdmin(inv.SenderAlt)) {
			d.refuse(ctx, log, inv, msgs.AdminOnly)
			return RefusedAdmin
		}
		self := d.deps.Client.Self()
		if !g.IsAdmin(self.ID) && (self.LID == "" || !g.IsAdmin(self.LID)) {
			d.refuse(ctx, log, inv, msgs.BotNotAdmin)
			return RefusedBotAdmin
		}
	}

	req := &plugins.Request{
		Invocation: inv,
		Client:     d.deps.Client,
		Groups:     d.deps.Groups,
		Registry:   d.deps.Registry,
		Logger:     log,
		Received:   received,
	}
	if err := d.invoke(ctx, plugin, req); err != nil {
		log.ErrorContext(ctx, "Plugin failed", "error", err)
		return Failed
	}

	log.DebugContext(ctx, "Plugin finished", "duration", time.Since(received))
	return Invoked
}

func (d *Dispatcher) invoke(ctx context.Context, plugin plugins.Plugin, req *plugins.Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			req.Logger.ErrorContext(ctx, "Plugin panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return plugin.Handler(ctx, req)
}

func (d *Dispatcher) refuse(ctx context.Context, log *slog.Logger, inv *message.Invocation, text string) {
	log.InfoContext(ctx, "Command refused", "reason", text)
	if text == "" {
		return
	}

	sendCtx := ctx
	if timeout := d.deps.Config.Telegram.SendTimeout; timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	key := inv.Key
	if _, err := d.deps.Client.SendMessage(sendCtx, inv.Chat, client.Outgoing{Text: text, Quoted: &key}); err != nil {
		log.WarnContext(ctx, "Failed to send refusal", "error", err)
	}
}

func (d *Dispatcher) audit(ctx context.Context, log *slog.Logger, inv *message.Invocation) {
	if d.deps.Store == nil || inv.Command == "" {
		return
	}
	rec := &database.InvocationRecord{
		CreatedAt: d.now(),
		ChatID:    inv.Chat,
		SenderID:  inv.Sender,
		IsGroup:   inv.IsGroup,
		Prefix:    inv.Prefix,
		Command:   inv.Command,
		Args:      inv.Args,
	}
	if err := d.deps.Store.SaveInvocation(ctx, rec); err != nil {
		log.WarnContext(ctx, "Failed to record invocation", "error", err)
	}
}

func modeAllows(mode string, isGroup bool) bool {
	switch mode {
	case config.ModePrivate:
		return !isGroup
	case config.ModeGroup:
		return isGroup
	default:
		return true
	}
}
