package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/edgard/basebot/internal/bot/plugins"
	"github.com/edgard/basebot/internal/client"
	"github.com/edgard/basebot/internal/group"
)

const settingsUsage = "Usage: %s%s open | close | lock | unlock | approval on|off | addmode all|admin | ephemeral off|1d|7d|90d"

var ephemeralDurations = map[string]uint32{
	"off": 0,
	"1d":  24 * 3600,
	"7d":  7 * 24 * 3600,
	"90d": 90 * 24 * 3600,
}

// groupSetting is one switch the settings command can flip.
type groupSetting struct {
	apply func(ctx context.Context, groupID string) (bool, error)
	done  string
	noop  string
}

// NewGroupSettingsHandler returns a handler changing group switches: who may send
// messages, edit the group info or add members, join approval and disappearing
// messages.
func NewGroupSettingsHandler(deps CommandDeps) plugins.HandlerFunc {
	return groupSettingsHandler{deps}.Handle
}

type groupSettingsHandler struct {
	deps CommandDeps
}

func (h groupSettingsHandler) Handle(ctx context.Context, req *plugins.Request) error {
	inv := req.Invocation
	setting, ok := h.lookup(inv.ArgList)
	if !ok {
		_, err := req.Reply(ctx, fmt.Sprintf(settingsUsage, inv.Prefix, inv.Command))
		return err
	}

	changed, err := setting.apply(ctx, inv.Chat)
	switch {
	case errors.Is(err, client.ErrUnsupported):
		_, err = req.Reply(ctx, "This setting is "+unsupported+".")
		return err
	case err != nil:
		replyError(ctx, req, h.deps.Config.Bot.Messages.Error)
		return fmt.Errorf("failed to update group settings: %w", err)
	case !changed:
		_, err = req.Reply(ctx, setting.noop)
		return err
	}

	_, err = req.Reply(ctx, setting.done)
	return err
}

func (h groupSettingsHandler) lookup(args []string) (groupSetting, bool) {
	a := h.deps.Admin
	flag := func(set func(context.Context, string, bool) (bool, error), on bool, done, noop string) groupSetting {
		return groupSetting{
			apply: func(ctx context.Context, groupID string) (bool, error) { return set(ctx, groupID, on) },
			done:  done,
			noop:  noop,
		}
	}

	key := strings.ToLower(strings.Join(args, " "))
	switch key {
	case "open":
		return flag(a.SetAnnounce, false, "Everyone can send messages now.", "Everyone can already send messages."), true
	case "close":
		return flag(a.SetAnnounce, true, "Only admins can send messages now.", "Only admins can already send messages."), true
	case "unlock":
		return flag(a.SetRestrict, false, "Everyone can edit the group info now.", "Everyone can already edit the group info."), true
	case "lock":
		return flag(a.SetRestrict, true, "Only admins can edit the group info now.", "Only admins can already edit the group info."), true
	case "approval on":
		return flag(a.SetJoinApproval, true, "New members now need admin approval.", "New members already need admin approval."), true
	case "approval off":
		return flag(a.SetJoinApproval, false, "New members no longer need approval.", "New members already join without approval."), true
	case "addmode all":
		return flag(a.SetMemberAddMode, true, "Every member can add participants now.", "Every member can already add participants."), true
	case "addmode admin":
		return flag(a.SetMemberAddMode, false, "Only admins can add participants now.", "Only admins can already add participants."), true
	}

	if d, ok := strings.CutPrefix(key, "ephemeral "); ok {
		seconds, known := ephemeralDurations[d]
		if !known {
			return groupSetting{}, false
		}
		return groupSetting{
			apply: func(ctx context.Context, groupID string) (bool, error) { return a.SetEphemeral(ctx, groupID, seconds) },
			done:  "Disappearing messages set to " + d + ".",
			noop:  "Disappearing messages are already " + d + ".",
		}, true
	}
	return groupSetting{}, false
}

// NewInviteLinkHandler returns a handler replying with the group invite link.
func NewInviteLinkHandler(deps CommandDeps) plugins.HandlerFunc {
	return inviteHandler{deps: deps, op: deps.Admin.InviteLink, format: "Invite link: %s"}.Handle
}

// NewRevokeInviteHandler returns a handler revoking the invite link and replying with
// its replacement.
func NewRevokeInviteHandler(deps CommandDeps) plugins.HandlerFunc {
	return inviteHandler{deps: deps, op: deps.Admin.RevokeInvite, format: "Invite link revoked.\nNew link: %s"}.Handle
}

type inviteHandler struct {
	deps   CommandDeps
	op     func(ctx context.Context, groupID string) (string, error)
	format string
}

func (h inviteHandler) Handle(ctx context.Context, req *plugins.Request) error {
	link, err := h.op(ctx, req.Invocation.Chat)
	if err != nil {
		replyError(ctx, req, h.deps.Config.Bot.Messages.Error)
		return fmt.Errorf("failed to get invite link: %w", err)
	}
	_, err = req.Reply(ctx, fmt.Sprintf(h.format, link))
	return err
}

// NewLeaveHandler returns a handler making the bot leave the current group.
func NewLeaveHandler(deps CommandDeps) plugins.HandlerFunc {
	return leaveHandler{deps}.Handle
}

type leaveHandler struct {
	deps CommandDeps
}

func (h leaveHandler) Handle(ctx context.Context, req *plugins.Request) error {
	if _, err := req.Reply(ctx, "Leaving the group. Bye!"); err != nil {
		req.Logger.WarnContext(ctx, "Failed to send farewell", "error", err)
	}
	if err := h.deps.Admin.Leave(ctx, req.Invocation.Chat); err != nil {
		if !errors.Is(err, group.ErrNotGroup) {
			replyError(ctx, req, h.deps.Config.Bot.Messages.Error)
		}
		return fmt.Errorf("failed to leave group: %w", err)
	}
	return nil
}
