package client

import (
	"github.com/edgard/basebot/internal/groupcache"
	"github.com/edgard/basebot/internal/message"
)

// ConnectionState is the state reported by a ConnectionUpdate.
type ConnectionState string

// Connection states.
const (
	StateConnecting ConnectionState = "connecting"
	StateOpen       ConnectionState = "open"
	StateClosed     ConnectionState = "close"
)

// ConnectionUpdate reports a connection state change. LoggedOut marks a closed
// session that cannot reconnect without new credentials.
type ConnectionUpdate struct {
	State     ConnectionState
	LoggedOut bool
	Err       error
}

// CredentialsUpdate reports that session credentials changed and should be persisted
// by whoever owns them.
type CredentialsUpdate struct{}

// Upsert kinds. Only notify messages are live traffic; append is history sync.
const (
	UpsertNotify = "notify"
	UpsertAppend = "append"
)

// MessagesUpsert delivers new messages.
type MessagesUpsert struct {
	Messages []message.Raw
	Kind     string
}

// GroupUpdate is a partial update of one group.
type GroupUpdate struct {
	ID    string
	Patch groupcache.Patch
}

// GroupsUpdate delivers partial group updates.
type GroupsUpdate struct {
	Updates []GroupUpdate
}

// GroupsUpsert delivers full group records, typically after joining or on sync.
type GroupsUpsert struct {
	Groups []groupcache.GroupState
}

// ParticipantsUpdate reports membership or rank changes in one group.
type ParticipantsUpdate struct {
	GroupID      string
	Participants []groupcache.Participant
	Action       groupcache.Action
}
