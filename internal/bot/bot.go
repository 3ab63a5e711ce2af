// Package bot wires the client connection, event routing and scheduled tasks together
// and manages their lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/basebot/internal/client"
	"github.com/edgard/basebot/internal/database"
)

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	client    client.Client
	router    *Router
	store     database.Store
	scheduler *Scheduler
}

// NewBot creates a new instance of the bot. store may be nil when no audit database
// is configured.
func NewBot(
	logger *slog.Logger,
	c client.Client,
	router *Router,
	store database.Store,
	scheduler *Scheduler,
) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		client:    c,
		router:    router,
		store:     store,
		scheduler: scheduler,
	}
}

// Run starts the bot and all its components, handling graceful shutdown on context cancellation.
// It returns an error if any component fails during startup or execution.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	if b.store != nil {
		if err := b.store.Ping(ctx); err != nil {
			return fmt.Errorf("database unavailable: %w", err)
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting client event loop...")

		err := b.client.Run(gCtx, b.router.Handle)
		b.logger.Info("Client event loop stopped.")

		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("client stopped: %w", err)
		}
		if gCtx.Err() == nil {
			b.logger.Warn("Client event loop stopped unexpectedly without context cancellation.")
			return errors.New("client stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		select {
		case err := <-b.router.Fatal():
			return err
		case <-gCtx.Done():
			return nil
		}
	})

	if b.scheduler != nil {
		g.Go(func() error {
			b.logger.Info("Starting scheduler...")
			if err := b.scheduler.Start(gCtx); err != nil {
				b.logger.Error("Failed to start scheduler", "error", err)
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			b.logger.Info("Shutdown signal received, stopping scheduler...")

			if err := b.scheduler.Stop(); err != nil {
				b.logger.Error("Error stopping scheduler", "error", err)
			}

			return nil
		})
	}

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
