package config

import "time"

// Default values for configuration.
const (
	DefaultLogLevel = "info"

	DefaultBotName   = "basebot"
	DefaultBotPrefix = "."
	DefaultBotMode   = ModeOpen

	DefaultCacheTTL = time.Hour

	DefaultSendTimeout = 10 * time.Second

	DefaultDBPath         = "basebot.db"
	DefaultAuditRetention = 30 * 24 * time.Hour

	DefaultRateLimitPerMinute = 20
	DefaultRateLimitBurst     = 5
)

// DefaultMessages are the refusal and error texts.
var DefaultMessages = MessagesConfig{
	OwnerOnly:   "This command is only available to the bot owner.",
	GroupOnly:   "This command can only be used in groups.",
	AdminOnly:   "This command is only available to group admins.",
	BotNotAdmin: "I need to be a group admin to do that.",
	Error:       "Something went wrong while running that command.",
}

// DefaultTasks are the scheduled tasks registered out of the box.
var DefaultTasks = map[string]TaskConfig{
	"cache_sweep":     {Enabled: true, Schedule: "0 */10 * * * *"},
	"audit_prune":     {Enabled: true, Schedule: "0 30 3 * * *"},
	"sql_maintenance": {Enabled: true, Schedule: "0 0 4 * * 0"},
}

func defaults() map[string]any {
	d := map[string]any{
		"logger.level": DefaultLogLevel,
		"logger.json":  false,

		"bot.name":                   DefaultBotName,
		"bot.prefixes":               []string{DefaultBotPrefix},
		"bot.owners":                 []string{},
		"bot.mode":                   DefaultBotMode,
		"bot.messages.owner_only":    DefaultMessages.OwnerOnly,
		"bot.messages.group_only":    DefaultMessages.GroupOnly,
		"bot.messages.admin_only":    DefaultMessages.AdminOnly,
		"bot.messages.bot_not_admin": DefaultMessages.BotNotAdmin,
		"bot.messages.error":         DefaultMessages.Error,

		"cache.ttl": DefaultCacheTTL,

		"telegram.token":        "",
		"telegram.send_timeout": DefaultSendTimeout,

		"database.path":            DefaultDBPath,
		"database.audit_retention": DefaultAuditRetention,

		"filters.rate_limit.enabled":    true,
		"filters.rate_limit.per_minute": DefaultRateLimitPerMinute,
		"filters.rate_limit.burst":      DefaultRateLimitBurst,
	}
	for name, task := range DefaultTasks {
		d["scheduler.tasks."+name+".enabled"] = task.Enabled
		d["scheduler.tasks."+name+".schedule"] = task.Schedule
	}
	return d
}
