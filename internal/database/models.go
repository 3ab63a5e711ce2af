package database

import "time"

// InvocationRecord is one command invocation in the audit log.
type InvocationRecord struct {
	ID        string    `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	ChatID    string    `db:"chat_id"`
	SenderID  string    `db:"sender_id"`
	IsGroup   bool      `db:"is_group"`
	Prefix    string    `db:"prefix"`
	Command   string    `db:"command"`
	Args      string    `db:"args"`
}

// CommandStat is the number of invocations of one command.
type CommandStat struct {
	Command string `db:"command"`
	Count   int64  `db:"count"`
}
