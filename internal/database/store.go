package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Store defines the audit log operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveInvocation appends a record. Empty ID and zero CreatedAt are filled in.
	SaveInvocation(ctx context.Context, rec *InvocationRecord) error

	// CommandStats counts invocations per command since the given time, most used first.
	CommandStats(ctx context.Context, since time.Time) ([]CommandStat, error)

	// PruneInvocations deletes records older than before and returns how many were removed.
	PruneInvocations(ctx context.Context, before time.Time) (int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a Store backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
		now:    time.Now,
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) SaveInvocation(ctx context.Context, rec *InvocationRecord) error {
	if rec == nil {
		return errors.New("cannot save nil invocation")
	}
	if rec.ChatID == "" {
		return errors.New("invocation must have a chat_id")
	}
	if rec.Command == "" {
		return errors.New("invocation must have a command")
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	query := `
        INSERT INTO invocations (id, created_at, chat_id, sender_id, is_group, prefix, command, args)
        VALUES (:id, :created_at, :chat_id, :sender_id, :is_group, :prefix, :command, :args);
    `
	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		s.logger.ErrorContext(ctx, "Error saving invocation", "chat_id", rec.ChatID, "command", rec.Command, "error", err)
		return fmt.Errorf("failed to save invocation (chat %s, command %s): %w", rec.ChatID, rec.Command, err)
	}

	s.logger.DebugContext(ctx, "Invocation saved", "id", rec.ID, "command", rec.Command)
	return nil
}

func (s *sqlxStore) CommandStats(ctx context.Context, since time.Time) ([]CommandStat, error) {
	query := `
        SELECT command, COUNT(*) AS count
        FROM invocations
        WHERE created_at >= ?
        GROUP BY command
        ORDER BY count DESC, command ASC;
    `
	var stats []CommandStat
	if err := s.db.SelectContext(ctx, &stats, query, since.UTC()); err != nil {
		s.logger.ErrorContext(ctx, "Failed to query command stats", "error", err)
		return nil, fmt.Errorf("failed to query command stats: %w", err)
	}
	return stats, nil
}

func (s *sqlxStore) PruneInvocations(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invocations WHERE created_at < ?;`, before.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to prune invocations", "before", before, "error", err)
		return 0, fmt.Errorf("failed to prune invocations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read pruned row count: %w", err)
	}
	return n, nil
}

// RunSQLMaintenance executes VACUUM and refreshes planner statistics.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context done before starting maintenance", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM cannot run inside a transaction.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		s.logger.WarnContext(ctx, "PRAGMA optimize failed", "error", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed")
	return nil
}
