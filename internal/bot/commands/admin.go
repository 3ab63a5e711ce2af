package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/edgard/basebot/internal/bot/plugins"
	"github.com/edgard/basebot/internal/client"
	"github.com/edgard/basebot/internal/group"
	"github.com/edgard/basebot/internal/jid"
	"github.com/edgard/basebot/internal/message"
)

const (
	targetUsage = "Mention the members, reply to one of their messages or pass their numbers."
	unsupported = "not supported on this platform"
)

// targetOp is one change applied per target.
type targetOp func(ctx context.Context, groupID, id string) (bool, error)

// NewPromoteHandler returns a handler granting admin rank to the targeted members.
func NewPromoteHandler(deps CommandDeps) plugins.HandlerFunc {
	return memberHandler{deps: deps, op: deps.Admin.Promote, done: "promoted", noop: "is already an admin"}.Handle
}

// NewDemoteHandler returns a handler revoking admin rank from the targeted members.
func NewDemoteHandler(deps CommandDeps) plugins.HandlerFunc {
	return memberHandler{deps: deps, op: deps.Admin.Demote, done: "demoted", noop: "is not an admin"}.Handle
}

// NewKickHandler returns a handler removing the targeted members. The bot itself and
// configured owners are never removed.
func NewKickHandler(deps CommandDeps) plugins.HandlerFunc {
	return memberHandler{deps: deps, op: deps.Admin.Remove, done: "removed", noop: "is not a member", protected: "cannot be removed"}.Handle
}

// NewAddHandler returns a handler adding the targeted numbers to the group.
func NewAddHandler(deps CommandDeps) plugins.HandlerFunc {
	return memberHandler{deps: deps, op: deps.Admin.Add, done: "added", noop: "is already a member"}.Handle
}

// NewBlockHandler returns a handler adding the targets to the block list. The bot
// itself and configured owners are never blocked.
func NewBlockHandler(deps CommandDeps) plugins.HandlerFunc {
	op := func(ctx context.Context, _, id string) (bool, error) { return deps.Admin.Block(ctx, id) }
	return memberHandler{deps: deps, op: op, done: "blocked", noop: "is already blocked", protected: "cannot be blocked"}.Handle
}

// NewUnblockHandler returns a handler removing the targets from the block list.
func NewUnblockHandler(deps CommandDeps) plugins.HandlerFunc {
	op := func(ctx context.Context, _, id string) (bool, error) { return deps.Admin.Unblock(ctx, id) }
	return memberHandler{deps: deps, op: op, done: "unblocked", noop: "is not blocked"}.Handle
}

// memberHandler applies op to every target and replies with one line per target.
// A non-empty protected text shields the bot and the owners from op.
type memberHandler struct {
	deps      CommandDeps
	op        targetOp
	done      string
	noop      string
	protected string
}

func (h memberHandler) Handle(ctx context.Context, req *plugins.Request) error {
	inv := req.Invocation
	targets := Targets(inv)
	if len(targets) == 0 {
		_, err := req.Reply(ctx, targetUsage)
		return err
	}

	self := req.Client.Self()
	lines := make([]string, 0, len(targets))
	var failed error
	for _, target := range targets {
		tag := "@" + jid.Number(target)

		if h.protected != "" && (jid.SameUser(target, self.ID) || jid.SameUser(target, self.LID) || h.deps.Config.Bot.IsOwner(target)) {
			lines = append(lines, tag+" "+h.protected)
			continue
		}

		changed, err := h.op(ctx, inv.Chat, target)
		switch {
		case errors.Is(err, group.ErrNotParticipant):
			lines = append(lines, tag+" is not a member")
		case errors.Is(err, client.ErrUnsupported):
			lines = append(lines, tag+" not "+h.done+" ("+unsupported+")")
		case err != nil:
			req.Logger.ErrorContext(ctx, "Member change failed", "target", target, "error", err)
			lines = append(lines, tag+" failed")
			failed = errors.Join(failed, err)
		case changed:
			lines = append(lines, tag+" "+h.done)
		default:
			lines = append(lines, tag+" "+h.noop)
		}
	}

	if _, err := req.ReplyMentions(ctx, strings.Join(lines, "\n"), targets); err != nil {
		return errors.Join(failed, fmt.Errorf("failed to send result: %w", err))
	}
	return failed
}

// NewKickAllHandler returns a handler removing every non-admin member except owners.
func NewKickAllHandler(deps CommandDeps) plugins.HandlerFunc {
	return kickAllHandler{deps}.Handle
}

type kickAllHandler struct {
	deps CommandDeps
}

func (h kickAllHandler) Handle(ctx context.Context, req *plugins.Request) error {
	n, err := h.deps.Admin.KickAll(ctx, req.Invocation.Chat, h.deps.Config.Bot.Owners...)
	if err != nil {
		replyError(ctx, req, h.deps.Config.Bot.Messages.Error)
		return fmt.Errorf("failed to remove members: %w", err)
	}

	req.Logger.InfoContext(ctx, "Removed non-admin members", "count", n)
	_, err = req.Reply(ctx, fmt.Sprintf("Removed %d members.", n))
	return err
}

// NewSetNameHandler returns a handler changing the group subject to the raw argument
// text.
func NewSetNameHandler(deps CommandDeps) plugins.HandlerFunc {
	return textHandler{deps: deps, op: deps.Admin.SetSubject, field: "subject"}.Handle
}

// NewSetDescriptionHandler returns a handler changing the group description to the raw
// argument text.
func NewSetDescriptionHandler(deps CommandDeps) plugins.HandlerFunc {
	return textHandler{deps: deps, op: deps.Admin.SetDescription, field: "description"}.Handle
}

// textHandler sets a free-text group field from the raw arguments.
type textHandler struct {
	deps  CommandDeps
	op    func(ctx context.Context, groupID, text string) (bool, error)
	field string
}

func (h textHandler) Handle(ctx context.Context, req *plugins.Request) error {
	inv := req.Invocation
	text := inv.RawArgs
	if text == "" {
		_, err := req.Reply(ctx, fmt.Sprintf("Usage: %s%s <new %s>", inv.Prefix, inv.Command, h.field))
		return err
	}

	changed, err := h.op(ctx, inv.Chat, text)
	switch {
	case errors.Is(err, client.ErrUnsupported):
		_, err = req.Reply(ctx, "Changing the group "+h.field+" is "+unsupported+".")
		return err
	case err != nil:
		replyError(ctx, req, h.deps.Config.Bot.Messages.Error)
		return fmt.Errorf("failed to set %s: %w", h.field, err)
	case !changed:
		_, err = req.Reply(ctx, "The group "+h.field+" is already "+text+".")
		return err
	}

	_, err = req.Reply(ctx, "Group "+h.field+" changed to "+text+".")
	return err
}

// Targets collects the members an invocation refers to: mentioned identifiers, the
// sender of the quoted message and numeric arguments, deduplicated by number.
func Targets(inv *message.Invocation) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(id string) {
		n := jid.Number(id)
		if n == "" || seen[n] {
			return
		}
		seen[n] = true
		out = append(out, id)
	}

	for _, m := range inv.Mentions {
		add(m)
	}
	if inv.Quoted != nil {
		add(inv.Quoted.Sender)
	}
	for _, arg := range inv.ArgList {
		n := strings.TrimLeft(arg, "@+")
		if n != "" && jid.Number(n) == n {
			add(jid.New(n, jid.UserServer))
		}
	}
	return out
}
