// Package main contains the entrypoint for the bot application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgard/basebot/internal/bot"
	"github.com/edgard/basebot/internal/bot/commands"
	"github.com/edgard/basebot/internal/bot/filters"
	"github.com/edgard/basebot/internal/bot/plugins"
	"github.com/edgard/basebot/internal/bot/tasks"
	"github.com/edgard/basebot/internal/config"
	"github.com/edgard/basebot/internal/database"
	"github.com/edgard/basebot/internal/dispatch"
	"github.com/edgard/basebot/internal/group"
	"github.com/edgard/basebot/internal/groupcache"
	"github.com/edgard/basebot/internal/logger"
	"github.com/edgard/basebot/internal/message"
	"github.com/edgard/basebot/internal/resilience"
	"github.com/edgard/basebot/internal/telegram"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components and returns an exit code
// (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	tg, err := telegram.New(cfg.Telegram.Token, log)
	if err != nil {
		log.Error("Failed to create Telegram client", "error", err)
		return 1
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "group_metadata"}, log)
	fetcher := resilience.Fetcher(tg, breaker, resilience.DefaultRetryConfig())
	groups := groupcache.New(fetcher, groupcache.WithTTL(cfg.Cache.TTL), groupcache.WithLogger(log))
	admin := group.NewAdmin(tg, groups, log)

	cDeps := commands.CommandDeps{
		Logger: log,
		Config: cfg,
		Store:  store,
		Admin:  admin,
	}
	registry := plugins.NewRegistry(func() []plugins.Plugin { return commands.RegisterAllCommands(cDeps) }, log)
	if err := registry.Reload(); err != nil {
		log.Error("Failed to load plugins", "error", err)
		return 1
	}

	chain := filters.NewChain(log)
	for _, f := range filters.RegisterAllFilters(filters.Deps{Logger: log, Config: cfg}) {
		if err := chain.Register(f); err != nil {
			log.Error("Failed to register filter", "error", err)
			return 1
		}
	}

	dispatcher := dispatch.New(dispatch.Deps{
		Logger:     log,
		Config:     cfg,
		Client:     tg,
		Groups:     groups,
		Normalizer: message.NewNormalizer(cfg.Bot.Prefixes),
		Chain:      chain,
		Registry:   registry,
		Store:      store,
	})
	router := bot.NewRouter(tg, groups, logger.Middleware(log)(dispatcher.Handle), log)

	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Groups: groups,
		Config: cfg,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}
	app := bot.NewBot(log, tg, router, store, sched)

	log.Info("Starting bot...", "name", cfg.Bot.Name, "mode", cfg.Bot.Mode, "prefixes", cfg.Bot.Prefixes)
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
