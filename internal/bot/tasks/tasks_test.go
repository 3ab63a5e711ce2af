package tasks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/basebot/internal/bot/tasks"
	"github.com/edgard/basebot/internal/config"
	"github.com/edgard/basebot/internal/database"
	"github.com/edgard/basebot/internal/groupcache"
	"github.com/edgard/basebot/internal/logger"
)

type stubStore struct {
	database.Store

	pruneBefore time.Time
	pruneErr    error
	vacuumed    int
}

func (s *stubStore) PruneInvocations(_ context.Context, before time.Time) (int64, error) {
	s.pruneBefore = before
	return 3, s.pruneErr
}

func (s *stubStore) RunSQLMaintenance(context.Context) error {
	s.vacuumed++
	return nil
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	clock := now
	store := &stubStore{}
	cache := groupcache.New(nil, groupcache.WithClock(func() time.Time { return clock }), groupcache.WithTTL(time.Minute))
	cache.Upsert(groupcache.GroupState{ID: "1@g.us"})

	cfg := &config.Config{Database: config.DatabaseConfig{AuditRetention: 24 * time.Hour}}
	all := tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: logger.Discard(),
		Store:  store,
		Groups: cache,
		Config: cfg,
		Now:    func() time.Time { return now },
	})

	for name := range config.DefaultTasks {
		assert.Contains(t, all, name, "every default task has an implementation")
	}

	ctx := context.Background()

	require.NoError(t, all["audit_prune"](ctx))
	assert.Equal(t, now.Add(-24*time.Hour), store.pruneBefore)

	require.NoError(t, all["sql_maintenance"](ctx))
	assert.Equal(t, 1, store.vacuumed)

	require.NoError(t, all["cache_sweep"](ctx))
	assert.Equal(t, 1, cache.Len(), "fresh entries survive a sweep")

	clock = clock.Add(2 * time.Minute)
	require.NoError(t, all["cache_sweep"](ctx))
	assert.Equal(t, 0, cache.Len())

	store.pruneErr = errors.New("locked")
	require.ErrorIs(t, all["audit_prune"](ctx), store.pruneErr)
}
