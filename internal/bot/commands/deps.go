// Package commands implements the built-in command plugins.
package commands

import (
	"log/slog"

	"github.com/edgard/basebot/internal/config"
	"github.com/edgard/basebot/internal/database"
	"github.com/edgard/basebot/internal/group"
)

// CommandDeps provides dependencies for the built-in plugins. Store may be nil, in
// which case the stats command reports that no audit log is available.
type CommandDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Store  database.Store
	Admin  *group.Admin
}
