package tasks

import (
	"context"
	"fmt"
	"time"
)

// newCacheSweepTask evicts expired group metadata.
func newCacheSweepTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "cache_sweep")

	return func(ctx context.Context) error {
		evicted := deps.Groups.Sweep()
		log.DebugContext(ctx, "Swept group cache", "evicted", evicted, "remaining", deps.Groups.Len())
		return nil
	}
}

// newAuditPruneTask deletes audit records older than the configured retention.
func newAuditPruneTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "audit_prune")

	return func(ctx context.Context) error {
		cutoff := deps.Now().Add(-deps.Config.Database.AuditRetention)

		n, err := deps.Store.PruneInvocations(ctx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "Audit prune failed", "error", err)
			return fmt.Errorf("audit prune failed: %w", err)
		}

		log.InfoContext(ctx, "Pruned audit log", "deleted", n, "cutoff", cutoff)
		return nil
	}
}

// newSQLMaintenanceTask runs database maintenance.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting scheduled SQL maintenance task...")
		startTime := time.Now()

		err := deps.Store.RunSQLMaintenance(ctx)
		duration := time.Since(startTime)
		if err != nil {
			log.ErrorContext(ctx, "SQL maintenance task failed", "error", err, "duration", duration)
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "Scheduled SQL maintenance task completed", "duration", duration)
		return nil
	}
}
