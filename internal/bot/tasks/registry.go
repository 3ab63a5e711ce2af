// Package tasks implements the scheduled maintenance tasks.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/basebot/internal/config"
	"github.com/edgard/basebot/internal/database"
	"github.com/edgard/basebot/internal/groupcache"
)

// ScheduledTaskFunc is the signature of every scheduled task. The context carries the
// scheduler's cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// TaskDeps contains the dependencies of the scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Groups *groupcache.Cache
	Config *config.Config
	Now    func() time.Time
}

// RegisterAllTasks returns every task keyed by the name used in the scheduler
// configuration.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	tasks := map[string]ScheduledTaskFunc{
		"cache_sweep":     newCacheSweepTask(deps),
		"audit_prune":     newAuditPruneTask(deps),
		"sql_maintenance": newSQLMaintenanceTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
