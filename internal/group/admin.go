// Package group implements group administration on top of the client and the group
// metadata cache. Every operation checks the cached state first so that no-op changes
// never reach the network, and mirrors successful changes back into the cache.
package group

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/edgard/basebot/internal/client"
	"github.com/edgard/basebot/internal/groupcache"
	"github.com/edgard/basebot/internal/jid"
)

// Sentinel errors.
var (
	ErrNotGroup       = errors.New("not a group chat")
	ErrNotParticipant = errors.New("not a participant of the group")
)

// Admin performs membership and settings changes.
type Admin struct {
	client client.Client
	groups *groupcache.Cache
	logger *slog.Logger
}

// NewAdmin creates an Admin.
func NewAdmin(c client.Client, groups *groupcache.Cache, logger *slog.Logger) *Admin {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Admin{client: c, groups: groups, logger: logger.With("component", "group_admin")}
}

// Promote grants admin rank. It reports false without calling the client when the
// participant already is an admin.
func (a *Admin) Promote(ctx context.Context, groupID, id string) (bool, error) {
	return a.setRank(ctx, groupID, id, groupcache.ActionPromote)
}

// Demote revokes admin rank. It reports false when the participant is not an admin.
func (a *Admin) Demote(ctx context.Context, groupID, id string) (bool, error) {
	return a.setRank(ctx, groupID, id, groupcache.ActionDemote)
}

func (a *Admin) setRank(ctx context.Context, groupID, id string, action groupcache.Action) (bool, error) {
	g, err := a.state(ctx, groupID)
	if err != nil {
		return false, err
	}
	p, ok := g.Find(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotParticipant, id)
	}
	if p.IsAdmin() == (action == groupcache.ActionPromote) {
		return false, nil
	}
	if err := a.apply(ctx, groupID, []groupcache.Participant{p}, action); err != nil {
		return false, err
	}
	return true, nil
}

// Remove removes a participant. It reports false when id is not a member.
func (a *Admin) Remove(ctx context.Context, groupID, id string) (bool, error) {
	g, err := a.state(ctx, groupID)
	if err != nil {
		return false, err
	}
	p, ok := g.Find(id)
	if !ok {
		return false, nil
	}
	if err := a.apply(ctx, groupID, []groupcache.Participant{p}, groupcache.ActionRemove); err != nil {
		return false, err
	}
	return true, nil
}

// Add adds a participant. It reports false when id already is a member.
func (a *Admin) Add(ctx context.Context, groupID, id string) (bool, error) {
	g, err := a.state(ctx, groupID)
	if err != nil {
		return false, err
	}
	if g.IsParticipant(id) {
		return false, nil
	}
	if err := a.apply(ctx, groupID, []groupcache.Participant{{ID: id}}, groupcache.ActionAdd); err != nil {
		return false, err
	}
	return true, nil
}

// SetSubject renames the group. It reports false when the subject is unchanged.
func (a *Admin) SetSubject(ctx context.Context, groupID, subject string) (bool, error) {
	g, err := a.state(ctx, groupID)
	if err != nil {
		return false, err
	}
	if g.Subject == subject {
		return false, nil
	}
	if err := a.client.UpdateSubject(ctx, groupID, subject); err != nil {
		return false, fmt.Errorf("update subject of %s: %w", groupID, err)
	}
	a.mirror(ctx, groupID, groupcache.Patch{Subject: &subject})
	return true, nil
}

// SetDescription replaces the group description. It reports false when the
// description is unchanged.
func (a *Admin) SetDescription(ctx context.Context, groupID, description string) (bool, error) {
	g, err := a.state(ctx, groupID)
	if err != nil {
		return false, err
	}
	if g.Description == description {
		return false, nil
	}
	if err := a.client.UpdateDescription(ctx, groupID, description); err != nil {
		return false, fmt.Errorf("update description of %s: %w", groupID, err)
	}
	a.mirror(ctx, groupID, groupcache.Patch{Description: &description})
	return true, nil
}

// SetAnnounce switches announcement mode, where only admins may send messages.
func (a *Admin) SetAnnounce(ctx context.Context, groupID string, on bool) (bool, error) {
	return a.setSetting(ctx, groupID, groupcache.Patch{Announce: &on},
		func(s groupcache.Settings) bool { return s.Announce == on })
}

// SetRestrict switches whether only admins may edit the group info.
func (a *Admin) SetRestrict(ctx context.Context, groupID string, on bool) (bool, error) {
	return a.setSetting(ctx, groupID, groupcache.Patch{Restrict: &on},
		func(s groupcache.Settings) bool { return s.Restrict == on })
}

// SetJoinApproval switches whether join requests need admin approval.
func (a *Admin) SetJoinApproval(ctx context.Context, groupID string, on bool) (bool, error) {
	return a.setSetting(ctx, groupID, groupcache.Patch{JoinApprovalMode: &on},
		func(s groupcache.Settings) bool { return s.JoinApprovalMode == on })
}

// SetMemberAddMode switches whether every member (true) or only admins may add
// participants.
func (a *Admin) SetMemberAddMode(ctx context.Context, groupID string, allMembers bool) (bool, error) {
	return a.setSetting(ctx, groupID, groupcache.Patch{MemberAddMode: &allMembers},
		func(s groupcache.Settings) bool { return s.MemberAddMode == allMembers })
}

// SetEphemeral sets the disappearing-messages timer in seconds; zero turns it off.
func (a *Admin) SetEphemeral(ctx context.Context, groupID string, seconds uint32) (bool, error) {
	return a.setSetting(ctx, groupID, groupcache.Patch{EphemeralDuration: &seconds},
		func(s groupcache.Settings) bool { return s.EphemeralDuration == seconds })
}

func (a *Admin) setSetting(ctx context.Context, groupID string, patch groupcache.Patch, unchanged func(groupcache.Settings) bool) (bool, error) {
	g, err := a.state(ctx, groupID)
	if err != nil {
		return false, err
	}
	if unchanged(g.Settings) {
		return false, nil
	}
	if err := a.client.UpdateSettings(ctx, groupID, patch); err != nil {
		return false, fmt.Errorf("update settings of %s: %w", groupID, err)
	}
	a.mirror(ctx, groupID, patch)
	return true, nil
}

func (a *Admin) mirror(ctx context.Context, groupID string, patch groupcache.Patch) {
	if err := a.groups.ApplyGroupUpdate(ctx, groupID, patch); err != nil {
		a.logger.WarnContext(ctx, "Failed to mirror group change", "group_id", groupID, "error", err)
	}
}

// InviteLink returns the group's current invite link.
func (a *Admin) InviteLink(ctx context.Context, groupID string) (string, error) {
	if !jid.IsGroup(groupID) {
		return "", fmt.Errorf("%w: %s", ErrNotGroup, groupID)
	}
	link, err := a.client.InviteLink(ctx, groupID)
	if err != nil {
		return "", fmt.Errorf("get invite link of %s: %w", groupID, err)
	}
	return link, nil
}

// RevokeInvite invalidates the current invite link and returns its replacement.
func (a *Admin) RevokeInvite(ctx context.Context, groupID string) (string, error) {
	if !jid.IsGroup(groupID) {
		return "", fmt.Errorf("%w: %s", ErrNotGroup, groupID)
	}
	link, err := a.client.RevokeInvite(ctx, groupID)
	if err != nil {
		return "", fmt.Errorf("revoke invite link of %s: %w", groupID, err)
	}
	a.logger.InfoContext(ctx, "Revoked invite link", "group_id", groupID)
	return link, nil
}

// Leave makes the connected account leave the group and drops its cached state.
func (a *Admin) Leave(ctx context.Context, groupID string) error {
	if !jid.IsGroup(groupID) {
		return fmt.Errorf("%w: %s", ErrNotGroup, groupID)
	}
	if err := a.client.LeaveGroup(ctx, groupID); err != nil {
		return fmt.Errorf("leave %s: %w", groupID, err)
	}
	a.groups.Invalidate(groupID)
	a.logger.InfoContext(ctx, "Left group", "group_id", groupID)
	return nil
}

// Block adds id to the block list. It reports false when id already is blocked.
func (a *Admin) Block(ctx context.Context, id string) (bool, error) {
	return a.setBlocked(ctx, id, true)
}

// Unblock removes id from the block list. It reports false when id is not blocked.
func (a *Admin) Unblock(ctx context.Context, id string) (bool, error) {
	return a.setBlocked(ctx, id, false)
}

func (a *Admin) setBlocked(ctx context.Context, id string, block bool) (bool, error) {
	list, err := a.client.BlockList(ctx)
	if err != nil {
		return false, fmt.Errorf("fetch block list: %w", err)
	}
	blocked := slices.ContainsFunc(list, func(b string) bool { return jid.SameUser(b, id) })
	if blocked == block {
		return false, nil
	}
	if err := a.client.UpdateBlockStatus(ctx, id, block); err != nil {
		return false, fmt.Errorf("update block status of %s: %w", id, err)
	}
	a.logger.InfoContext(ctx, "Updated block list", "id", id, "blocked", block)
	return true, nil
}

// KickAll removes every non-admin participant except the connected account and the
// identifiers in keep. It returns the number of participants removed.
func (a *Admin) KickAll(ctx context.Context, groupID string, keep ...string) (int, error) {
	g, err := a.state(ctx, groupID)
	if err != nil {
		return 0, err
	}

	self := a.client.Self()
	keep = append(slices.Clone(keep), self.ID, self.LID)

	var targets []groupcache.Participant
	for _, p := range g.Participants {
		if p.IsAdmin() || matchesAny(p, keep) {
			continue
		}
		targets = append(targets, p)
	}
	if len(targets) == 0 {
		return 0, nil
	}
	if err := a.apply(ctx, groupID, targets, groupcache.ActionRemove); err != nil {
		return 0, err
	}
	return len(targets), nil
}

func (a *Admin) state(ctx context.Context, groupID string) (*groupcache.GroupState, error) {
	if !jid.IsGroup(groupID) {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, groupID)
	}
	g, err := a.groups.Ensure(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load group %s: %w", groupID, err)
	}
	return g, nil
}

func (a *Admin) apply(ctx context.Context, groupID string, participants []groupcache.Participant, action groupcache.Action) error {
	ids := make([]string, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
		if ids[i] == "" {
			ids[i] = p.PhoneNumber
		}
	}

	if err := a.client.UpdateParticipants(ctx, groupID, ids, action); err != nil {
		return fmt.Errorf("%s participants in %s: %w", action, groupID, err)
	}
	a.logger.InfoContext(ctx, "Updated participants", "group_id", groupID, "action", action, "count", len(ids))

	if err := a.groups.ApplyParticipantUpdate(ctx, groupID, participants, action); err != nil {
		a.logger.WarnContext(ctx, "Failed to mirror participant change", "group_id", groupID, "error", err)
	}
	return nil
}

func matchesAny(p groupcache.Participant, ids []string) bool {
	for _, id := range ids {
		if id != "" && p.Matches(id) {
			return true
		}
	}
	return false
}
