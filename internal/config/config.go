// Package config provides configuration loading, validation, and defaults for the bot.
// Values come from a YAML file layered over defaults, with BOT_-prefixed environment
// variables taking precedence (BOT_TELEGRAM_TOKEN overrides telegram.token).
package config

import (
	"time"

	"github.com/edgard/basebot/internal/jid"
)

// Bot modes.
const (
	ModeOpen    = "open"
	ModePrivate = "private"
	ModeGroup   = "group"
)

// Config is the root configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Bot       BotConfig       `mapstructure:"bot"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Filters   FiltersConfig   `mapstructure:"filters"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggerConfig controls log output.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// BotConfig holds dispatch settings.
type BotConfig struct {
	Name     string         `mapstructure:"name"     validate:"required"`
	Prefixes []string       `mapstructure:"prefixes" validate:"min=1,dive,required"`
	Owners   []string       `mapstructure:"owners"   validate:"dive,required"`
	Mode     string         `mapstructure:"mode"     validate:"oneof=open private group"`
	Messages MessagesConfig `mapstructure:"messages"`
}

// IsOwner reports whether any of ids belongs to a configured owner. Owners may be
// configured as bare numbers or full identifiers; both compare by numeric prefix.
func (b BotConfig) IsOwner(ids ...string) bool {
	for _, owner := range b.Owners {
		for _, id := range ids {
			if jid.SameUser(owner, id) {
				return true
			}
		}
	}
	return false
}

// MessagesConfig holds user-facing texts.
type MessagesConfig struct {
	OwnerOnly   string `mapstructure:"owner_only"   validate:"required"`
	GroupOnly   string `mapstructure:"group_only"   validate:"required"`
	AdminOnly   string `mapstructure:"admin_only"   validate:"required"`
	BotNotAdmin string `mapstructure:"bot_not_admin" validate:"required"`
	Error       string `mapstructure:"error"        validate:"required"`
}

// CacheConfig configures the group metadata cache.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl" validate:"min=1s"`
}

// TelegramConfig configures the Telegram client adapter.
type TelegramConfig struct {
	Token       string        `mapstructure:"token"        validate:"required"`
	SendTimeout time.Duration `mapstructure:"send_timeout" validate:"min=1s"`
}

// DatabaseConfig configures the audit log database.
type DatabaseConfig struct {
	Path           string        `mapstructure:"path"            validate:"required"`
	AuditRetention time.Duration `mapstructure:"audit_retention" validate:"min=1h"`
}

// FiltersConfig configures the built-in message filters.
type FiltersConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig limits command invocations per sender.
type RateLimitConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	PerMinute int  `mapstructure:"per_minute" validate:"min=1"`
	Burst     int  `mapstructure:"burst"      validate:"min=1"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig is one scheduled task. Schedule is a cron expression with a seconds field.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}
