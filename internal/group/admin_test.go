package group_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/basebot/internal/client"
	"github.com/edgard/basebot/internal/client/clienttest"
	"github.com/edgard/basebot/internal/group"
	"github.com/edgard/basebot/internal/groupcache"
)

const groupID = "120363000002@g.us"

var self = client.Identity{ID: "6289999@s.whatsapp.net", LID: "555@lid"}

func setup(t *testing.T) (*group.Admin, *clienttest.Fake, *groupcache.Cache) {
	t.Helper()

	fake := clienttest.New(self)
	fake.AddGroup(&groupcache.GroupState{
		ID:      groupID,
		Subject: "Old name",
		Participants: []groupcache.Participant{
			{ID: "555@lid", PhoneNumber: self.ID, Admin: groupcache.RankAdmin},
			{ID: "1001@lid", PhoneNumber: "6281111@s.whatsapp.net", Admin: groupcache.RankSuperAdmin},
			{ID: "1002@lid", PhoneNumber: "6282222@s.whatsapp.net"},
			{ID: "1003@lid", PhoneNumber: "6283333@s.whatsapp.net"},
		},
	})
	cache := groupcache.New(fake)
	return group.NewAdmin(fake, cache, nil), fake, cache
}

func TestPromoteDemote(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	admin, fake, cache := setup(t)

	changed, err := admin.Promote(ctx, groupID, "6282222@s.whatsapp.net")
	require.NoError(t, err)
	assert.True(t, changed)

	g, ok := cache.Get(groupID)
	require.True(t, ok)
	assert.True(t, g.IsAdmin("1002@lid"), "cache mirrors the promotion")

	changed, err = admin.Promote(ctx, groupID, "1002@lid")
	require.NoError(t, err)
	assert.False(t, changed, "already admin")

	changed, err = admin.Demote(ctx, groupID, "6283333@s.whatsapp.net")
	require.NoError(t, err)
	assert.False(t, changed, "not an admin")

	changed, err = admin.Demote(ctx, groupID, "1002@lid")
	require.NoError(t, err)
	assert.True(t, changed)

	calls := fake.ParticipantCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, groupcache.ActionPromote, calls[0].Action)
	assert.Equal(t, []string{"1002@lid"}, calls[0].IDs)
	assert.Equal(t, groupcache.ActionDemote, calls[1].Action)

	_, err = admin.Promote(ctx, groupID, "6287777@s.whatsapp.net")
	require.ErrorIs(t, err, group.ErrNotParticipant)
}

func TestRemoveAndAdd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	admin, fake, cache := setup(t)

	changed, err := admin.Remove(ctx, groupID, "6287777@s.whatsapp.net")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = admin.Remove(ctx, groupID, "6283333@s.whatsapp.net")
	require.NoError(t, err)
	assert.True(t, changed)

	g, _ := cache.Get(groupID)
	assert.Equal(t, 3, g.Size)

	changed, err = admin.Add(ctx, groupID, "6283333@s.whatsapp.net")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = admin.Add(ctx, groupID, "6281111@s.whatsapp.net")
	require.NoError(t, err)
	assert.False(t, changed, "already a member")

	g, _ = cache.Get(groupID)
	assert.Equal(t, 4, g.Size)
	assert.Len(t, fake.ParticipantCalls(), 2)
}

func TestSetSubject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	admin, fake, cache := setup(t)

	changed, err := admin.SetSubject(ctx, groupID, "Old name")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = admin.SetSubject(ctx, groupID, "New name")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "New name", fake.Subject(groupID))

	g, _ := cache.Get(groupID)
	assert.Equal(t, "New name", g.Subject)
}

func TestKickAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	admin, fake, cache := setup(t)

	n, err := admin.KickAll(ctx, groupID, "6282222")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	calls := fake.ParticipantCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"1003@lid"}, calls[0].IDs)
	assert.Equal(t, groupcache.ActionRemove, calls[0].Action)

	g, _ := cache.Get(groupID)
	assert.Equal(t, 3, g.Size)
	assert.True(t, g.IsParticipant(self.ID))
}

func TestErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	admin, fake, _ := setup(t)

	_, err := admin.Promote(ctx, "6281111@s.whatsapp.net", "x")
	require.ErrorIs(t, err, group.ErrNotGroup)

	_, err = admin.Remove(ctx, "404@g.us", "6281111@s.whatsapp.net")
	require.ErrorIs(t, err, clienttest.ErrNotFound)

	fake.UpdateErr = errors.New("forbidden")
	_, err = admin.Remove(ctx, groupID, "6283333@s.whatsapp.net")
	require.ErrorIs(t, err, fake.UpdateErr)
}

func TestSetDescription(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	admin, fake, cache := setup(t)

	changed, err := admin.SetDescription(ctx, groupID, "Rules: be kind")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "Rules: be kind", fake.Description(groupID))

	g, ok := cache.Get(groupID)
	require.True(t, ok)
	assert.Equal(t, "Rules: be kind", g.Description)

	changed, err = admin.SetDescription(ctx, groupID, "Rules: be kind")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSettings(t *testing.T) {
	t.Parallel()

	on, off := true, false
	week := uint32(7 * 24 * 3600)

	tests := []struct {
		name  string
		set   func(context.Context, *group.Admin) (bool, error)
		want  groupcache.Patch
		check func(groupcache.Settings) bool
	}{
		{
			name:  "announce",
			set:   func(ctx context.Context, a *group.Admin) (bool, error) { return a.SetAnnounce(ctx, groupID, true) },
			want:  groupcache.Patch{Announce: &on},
			check: func(s groupcache.Settings) bool { return s.Announce },
		},
		{
			name:  "restrict",
			set:   func(ctx context.Context, a *group.Admin) (bool, error) { return a.SetRestrict(ctx, groupID, true) },
			want:  groupcache.Patch{Restrict: &on},
			check: func(s groupcache.Settings) bool { return s.Restrict },
		},
		{
			name:  "join approval",
			set:   func(ctx context.Context, a *group.Admin) (bool, error) { return a.SetJoinApproval(ctx, groupID, true) },
			want:  groupcache.Patch{JoinApprovalMode: &on},
			check: func(s groupcache.Settings) bool { return s.JoinApprovalMode },
		},
		{
			name:  "member add mode",
			set:   func(ctx context.Context, a *group.Admin) (bool, error) { return a.SetMemberAddMode(ctx, groupID, true) },
			want:  groupcache.Patch{MemberAddMode: &on},
			check: func(s groupcache.Settings) bool { return s.MemberAddMode },
		},
		{
			name:  "ephemeral",
			set:   func(ctx context.Context, a *group.Admin) (bool, error) { return a.SetEphemeral(ctx, groupID, week) },
			want:  groupcache.Patch{EphemeralDuration: &week},
			check: func(s groupcache.Settings) bool { return s.EphemeralDuration == week },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			admin, fake, cache := setup(t)

			changed, err := tc.set(ctx, admin)
			require.NoError(t, err)
			assert.True(t, changed)
			assert.Equal(t, []clienttest.SettingsCall{{GroupID: groupID, Patch: tc.want}}, fake.SettingsCalls())

			g, ok := cache.Get(groupID)
			require.True(t, ok)
			assert.True(t, tc.check(g.Settings), "cache mirrors the setting")

			changed, err = tc.set(ctx, admin)
			require.NoError(t, err)
			assert.False(t, changed, "second change is a no-op")
			assert.Len(t, fake.SettingsCalls(), 1)
		})
	}

	t.Run("already in target state", func(t *testing.T) {
		t.Parallel()

		admin, fake, _ := setup(t)
		changed, err := admin.SetAnnounce(context.Background(), groupID, off)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, fake.SettingsCalls())
	})

	t.Run("client refusal is returned", func(t *testing.T) {
		t.Parallel()

		admin, fake, cache := setup(t)
		fake.UpdateErr = client.ErrUnsupported
		_, err := admin.SetEphemeral(context.Background(), groupID, week)
		require.ErrorIs(t, err, client.ErrUnsupported)

		g, ok := cache.Get(groupID)
		require.True(t, ok)
		assert.Zero(t, g.Settings.EphemeralDuration)
	})
}

func TestInviteAndLeave(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	admin, fake, cache := setup(t)

	link, err := admin.InviteLink(ctx, groupID)
	require.NoError(t, err)
	revoked, err := admin.RevokeInvite(ctx, groupID)
	require.NoError(t, err)
	assert.NotEqual(t, link, revoked)

	_, err = cache.Ensure(ctx, groupID)
	require.NoError(t, err)
	require.NoError(t, admin.Leave(ctx, groupID))
	assert.Equal(t, []string{groupID}, fake.Left())
	_, ok := cache.Get(groupID)
	assert.False(t, ok, "leaving drops the cached group")

	_, err = admin.InviteLink(ctx, "6281111@s.whatsapp.net")
	require.ErrorIs(t, err, group.ErrNotGroup)
	require.ErrorIs(t, admin.Leave(ctx, "6281111@s.whatsapp.net"), group.ErrNotGroup)
}

func TestBlockUnblock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	admin, _, _ := setup(t)
	spammer := "6287777@s.whatsapp.net"

	changed, err := admin.Unblock(ctx, spammer)
	require.NoError(t, err)
	assert.False(t, changed, "not blocked yet")

	changed, err = admin.Block(ctx, spammer)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = admin.Block(ctx, "6287777:2@s.whatsapp.net")
	require.NoError(t, err)
	assert.False(t, changed, "matched by number")

	changed, err = admin.Unblock(ctx, spammer)
	require.NoError(t, err)
	assert.True(t, changed)
}
