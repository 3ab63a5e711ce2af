// Package client defines the boundary between the bot core and a messaging-platform
// connection. Transport, encryption and session persistence live behind Client.
package client

import (
	"context"
	"errors"

	"github.com/edgard/basebot/internal/groupcache"
	"github.com/edgard/basebot/internal/message"
)

// ErrUnsupported is returned by adapters for operations the platform cannot perform.
var ErrUnsupported = errors.New("operation not supported by client")

// Identity is the connected account. LID is the alternate identifier form and may be
// empty.
type Identity struct {
	ID  string
	LID string
}

// Outgoing is a message to send. Quoted makes it a reply; Edit replaces the text of a
// message sent earlier instead of sending a new one.
type Outgoing struct {
	Text     string
	Quoted   *message.Key
	Edit     *message.Key
	Mentions []string
}

// EventHandler receives inbound events. evt is one of the event types in this package.
type EventHandler func(ctx context.Context, evt any)

// Client is a connected messaging session.
type Client interface {
	// Self returns the connected identity. It is only meaningful after Run has
	// delivered an open ConnectionUpdate.
	Self() Identity

	// Run connects and delivers events to handler until ctx is cancelled or the
	// connection fails permanently.
	Run(ctx context.Context, handler EventHandler) error

	SendMessage(ctx context.Context, chat string, msg Outgoing) (message.Key, error)
	GroupMetadata(ctx context.Context, groupID string) (*groupcache.GroupState, error)
	UpdateParticipants(ctx context.Context, groupID string, ids []string, action groupcache.Action) error
	UpdateSubject(ctx context.Context, groupID, subject string) error
	UpdateDescription(ctx context.Context, groupID, description string) error

	// UpdateSettings changes the group switches set in patch. Subject, owner and
	// description fields of patch are ignored.
	UpdateSettings(ctx context.Context, groupID string, patch groupcache.Patch) error

	// InviteLink returns the current invite link; RevokeInvite replaces it and
	// returns the new one.
	InviteLink(ctx context.Context, groupID string) (string, error)
	RevokeInvite(ctx context.Context, groupID string) (string, error)
	LeaveGroup(ctx context.Context, groupID string) error

	BlockList(ctx context.Context) ([]string, error)
	UpdateBlockStatus(ctx context.Context, id string, block bool) error
}
