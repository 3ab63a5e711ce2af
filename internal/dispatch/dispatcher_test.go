package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/basebot/internal/bot/filters"
	"github.com/edgard/basebot/internal/bot/plugins"
	"github.com/edgard/basebot/internal/client"
	"github.com/edgard/basebot/internal/client/clienttest"
	"github.com/edgard/basebot/internal/config"
	"github.com/edgard/basebot/internal/database"
	"github.com/edgard/basebot/internal/dispatch"
	"github.com/edgard/basebot/internal/groupcache"
	"github.com/edgard/basebot/internal/logger"
	"github.com/edgard/basebot/internal/message"
)

const (
	groupID = "120363000003@g.us"
	owner   = "6280000@s.whatsapp.net"
	admin   = "6281111@s.whatsapp.net"
	member  = "6282222@s.whatsapp.net"
)

var self = client.Identity{ID: "6289999@s.whatsapp.net", LID: "555@lid"}

type memStore struct {
	mu      sync.Mutex
	records []database.InvocationRecord
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) SaveInvocation(_ context.Context, rec *database.InvocationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *rec)
	return nil
}

func (m *memStore) CommandStats(context.Context, time.Time) ([]database.CommandStat, error) {
	return nil, nil
}

func (m *memStore) PruneInvocations(context.Context, time.Time) (int64, error) { return 0, nil }
func (m *memStore) RunSQLMaintenance(context.Context) error { return nil }

func (m *memStore) commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.records))
	for i, r := range m.records {
		out[i] = r.Command
	}
	return out
}

type harness struct {
	d      *dispatch.Dispatcher
	fake   *clienttest.Fake
	store  *memStore
	chain  *filters.Chain
	calls  map[string]int
	mu     sync.Mutex
	config *config.Config
}

func (h *harness) called(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[name]
}

func newHarness(t *testing.T, mode string, botIsAdmin bool) *harness {
	t.Helper()

	h := &harness{calls: map[string]int{}, store: &memStore{}}

	botRank := groupcache.RankNone
	if botIsAdmin {
		botRank = groupcache.RankAdmin
	}
	h.fake = clienttest.New(self)
	h.fake.AddGroup(&groupcache.GroupState{
		ID: groupID,
		Participants: []groupcache.Participant{
			{ID: "555@lid", PhoneNumber: self.ID, Admin: botRank},
			{ID: "1001@lid", PhoneNumber: admin, Admin: groupcache.RankAdmin},
			{ID: "1002@lid", PhoneNumber: member},
		},
	})

	h.config = &config.Config{
		Bot: config.BotConfig{
			Prefixes: []string{".", "!"},
			Owners:   []string{"6280000"},
			Mode:     mode,
			Messages: config.DefaultMessages,
		},
		Telegram: config.TelegramConfig{SendTimeout: time.Second},
	}

	handler := func(name string, err error) plugins.HandlerFunc {
		return func(context.Context, *plugins.Request) error {
			h.mu.Lock()
			h.calls[name]++
			h.mu.Unlock()
			return err
		}
	}

	registry := plugins.NewRegistry(nil, logger.Discard())
	require.NoError(t, registry.Load(
		plugins.Plugin{Name: "ping", Commands: []string{"ping"}, Handler: handler("ping", nil)},
		plugins.Plugin{Name: "reload", Commands: []string{"reload"}, OwnerOnly: true, Handler: handler("reload", nil)},
		plugins.Plugin{Name: "admins", Commands: []string{"checkadmin"}, GroupOnly: true, Handler: handler("admins", nil)},
		plugins.Plugin{Name: "kick", Commands: []string{"kick"}, GroupOnly: true, AdminOnly: true, Handler: handler("kick", nil)},
		plugins.Plugin{Name: "kickall", Commands: []string{"kickall"}, OwnerOnly: true, GroupOnly: true, Handler: handler("kickall", nil)},
		plugins.Plugin{Name: "broken", Commands: []string{"broken"}, Handler: handler("broken", errors.New("boom"))},
		plugins.Plugin{Name: "panics", Commands: []string{"panics"}, Handler: func(context.Context, *plugins.Request) error {
			panic("kaboom")
		}},
	))

	h.chain = filters.NewChain(logger.Discard())
	h.d = dispatch.New(dispatch.Deps{
		Logger:     logger.Discard(),
		Config:     h.config,
		Client:     h.fake,
		Groups:     groupcache.New(h.fake),
		Normalizer: message.NewNormalizer(h.config.Bot.Prefixes),
		Chain:      h.chain,
		Registry:   registry,
		Store:      h.store,
	})
	return h
}

func groupMsg(sender, text string) *message.Raw {
	return &message.Raw{
		Key:     message.Key{RemoteJID: groupID, Participant: sender, ID: "G1"},
		Message: &message.Content{Conversation: text},
	}
}

func privateMsg(sender, text string) *message.Raw {
	return &message.Raw{
		Key:     message.Key{RemoteJID: sender, ID: "P1"},
		Message: &message.Content{Conversation: text},
	}
}

func TestDispatchOutcomes(t *testing.T) {
	t.Parallel()

	msgs := config.DefaultMessages

	tests := []struct {
		name        string
		mode        string
		botIsAdmin  bool
		raw         *message.Raw
		want        dispatch.Outcome
		wantCalled  string
		wantReplies []string
	}{
		{name: "no prefix is never dispatched", raw: privateMsg(member, "ping"), want: dispatch.Ignored},
		{name: "prefix without command", raw: privateMsg(member, "."), want: dispatch.Ignored},
		{name: "empty content", raw: &message.Raw{Key: message.Key{RemoteJID: member}}, want: dispatch.Ignored},
		{name: "unknown command is silent", raw: privateMsg(member, ".nope"), want: dispatch.UnknownCommand},
		{name: "invoked", raw: privateMsg(member, ".ping"), want: dispatch.Invoked, wantCalled: "ping"},
		{name: "detached prefix", raw: privateMsg(member, "! ping"), want: dispatch.Invoked, wantCalled: "ping"},
		{
			name: "owner only refuses others", raw: privateMsg(member, ".reload"),
			want: dispatch.RefusedOwner, wantReplies: []string{msgs.OwnerOnly},
		},
		{name: "owner only allows owner", raw: privateMsg(owner, ".reload"), want: dispatch.Invoked, wantCalled: "reload"},
		{
			name: "group only refuses private", raw: privateMsg(member, ".checkadmin"),
			want: dispatch.RefusedGroup, wantReplies: []string{msgs.GroupOnly},
		},
		{name: "group only in group", raw: groupMsg(member, ".checkadmin"), want: dispatch.Invoked, wantCalled: "admins"},
		{
			name: "owner gate runs before group gate", raw: privateMsg(member, ".kickall"),
			want: dispatch.RefusedOwner, wantReplies: []string{msgs.OwnerOnly},
		},
		{
			name: "admin only refuses member", raw: groupMsg(member, ".kick"), botIsAdmin: true,
			want: dispatch.RefusedAdmin, wantReplies: []string{msgs.AdminOnly},
		},
		{name: "admin only allows admin", raw: groupMsg(admin, ".kick"), botIsAdmin: true, want: dispatch.Invoked, wantCalled: "kick"},
		{
			name: "bot must be admin even when sender is", raw: groupMsg(admin, ".kick"),
			want: dispatch.RefusedBotAdmin, wantReplies: []string{msgs.BotNotAdmin},
		},
		{
			name: "group gate runs before admin gate", raw: privateMsg(admin, ".kick"),
			want: dispatch.RefusedGroup, wantReplies: []string{msgs.GroupOnly},
		},
		{name: "private mode refuses groups", mode: config.ModePrivate, raw: groupMsg(member, ".ping"), want: dispatch.ModeRestricted},
		{name: "private mode allows private", mode: config.ModePrivate, raw: privateMsg(member, ".ping"), want: dispatch.Invoked, wantCalled: "ping"},
		{name: "group mode refuses private", mode: config.ModeGroup, raw: privateMsg(member, ".ping"), want: dispatch.ModeRestricted},
		{name: "owner bypasses mode", mode: config.ModeGroup, raw: privateMsg(owner, ".ping"), want: dispatch.Invoked, wantCalled: "ping"},
		{name: "handler error is isolated", raw: privateMsg(member, ".broken"), want: dispatch.Failed, wantCalled: "broken"},
		{name: "handler panic is isolated", raw: privateMsg(member, ".panics"), want: dispatch.Failed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mode := tc.mode
			if mode == "" {
				mode = config.ModeOpen
			}
			h := newHarness(t, mode, tc.botIsAdmin)

			got := h.d.Dispatch(context.Background(), tc.raw)
			assert.Equal(t, tc.want, got, "outcome %s", got)

			if tc.wantCalled != "" {
				assert.Equal(t, 1, h.called(tc.wantCalled))
			}
			if tc.wantReplies == nil {
				assert.Empty(t, h.fake.Texts())
			} else {
				assert.Equal(t, tc.wantReplies, h.fake.Texts())
				sent := h.fake.Sent()
				require.NotNil(t, sent[0].Msg.Quoted)
				assert.Equal(t, tc.raw.Key.ID, sent[0].Msg.Quoted.ID)
			}
		})
	}
}

func TestDispatchFilterVeto(t *testing.T) {
	t.Parallel()

	h := newHarness(t, config.ModeOpen, true)
	require.NoError(t, h.chain.Register(filters.New("block", 50, func(context.Context, *message.Invocation) (filters.Verdict, error) {
		return filters.Stop, nil
	})))

	assert.Equal(t, dispatch.Filtered, h.d.Dispatch(context.Background(), privateMsg(member, ".ping")))
	assert.Equal(t, 0, h.called("ping"))
	assert.Empty(t, h.store.commands(), "vetoed messages are not recorded")
}

func TestDispatchMetadataFailureIsSilent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, config.ModeOpen, true)
	h.fake.MetadataErr = errors.New("offline")

	assert.Equal(t, dispatch.MetadataUnavailable, h.d.Dispatch(context.Background(), groupMsg(admin, ".kick")))
	assert.Empty(t, h.fake.Texts())
	assert.Equal(t, 0, h.called("kick"))
}

func TestDispatchAudit(t *testing.T) {
	t.Parallel()

	h := newHarness(t, config.ModeOpen, true)
	ctx := context.Background()

	h.d.Dispatch(ctx, privateMsg(member, ".ping"))
	h.d.Dispatch(ctx, privateMsg(member, ".nope"))
	h.d.Dispatch(ctx, privateMsg(member, "hello"))
	h.d.Dispatch(ctx, groupMsg(member, ".kick"))

	assert.Equal(t, []string{"ping", "nope", "kick"}, h.store.commands())
}

func TestDispatchAdminBySenderAlt(t *testing.T) {
	t.Parallel()

	h := newHarness(t, config.ModeOpen, true)
	raw := groupMsg("1001@lid", ".kick")
	raw.Key.ParticipantAlt = admin

	assert.Equal(t, dispatch.Invoked, h.d.Dispatch(context.Background(), raw))
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "invoked", dispatch.Invoked.String())
	assert.Equal(t, "refused_bot_admin", dispatch.RefusedBotAdmin.String())
	assert.Equal(t, "outcome(99)", dispatch.Outcome(99).String())
}
