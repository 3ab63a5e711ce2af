package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/edgard/basebot/internal/client"
	"github.com/edgard/basebot/internal/groupcache"
	"github.com/edgard/basebot/internal/logger"
)

// ErrLoggedOut is reported when the session is logged out remotely.
var ErrLoggedOut = errors.New("session logged out")

// Router turns client events into cache updates and message dispatches.
type Router struct {
	client client.Client
	groups *groupcache.Cache
	handle logger.MessageHandler
	logger *slog.Logger
	fatal  chan error
}

// NewRouter creates a Router. handle receives every live inbound message.
func NewRouter(c client.Client, groups *groupcache.Cache, handle logger.MessageHandler, log *slog.Logger) *Router {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Router{
		client: c,
		groups: groups,
		handle: handle,
		logger: log.With("component", "event_router"),
		fatal:  make(chan error, 1),
	}
}

// Fatal delivers at most one unrecoverable error.
func (r *Router) Fatal() <-chan error {
	return r.fatal
}

// Handle implements client.EventHandler.
func (r *Router) Handle(ctx context.Context, evt any) {
	switch e := evt.(type) {
	case client.ConnectionUpdate:
		r.onConnection(ctx, e)
	case client.CredentialsUpdate:
		r.logger.DebugContext(ctx, "Credentials updated")
	case client.MessagesUpsert:
		r.onMessages(ctx, e)
	case client.ParticipantsUpdate:
		r.onParticipants(ctx, e)
	case client.GroupsUpdate:
		for _, u := range e.Updates {
			if err := r.groups.ApplyGroupUpdate(ctx, u.ID, u.Patch); err != nil {
				r.logger.WarnContext(ctx, "Dropped group update", "group_id", u.ID, "error", err)
			}
		}
	case client.GroupsUpsert:
		r.groups.Upsert(e.Groups...)
		r.logger.DebugContext(ctx, "Upserted groups", "count", len(e.Groups))
	default:
		r.logger.DebugContext(ctx, "Ignoring unknown event", "type", fmt.Sprintf("%T", evt))
	}
}

func (r *Router) onConnection(ctx context.Context, e client.ConnectionUpdate) {
	switch e.State {
	case client.StateOpen:
		self := r.client.Self()
		r.logger.InfoContext(ctx, "Connection open", "id", self.ID, "lid", self.LID)
	case client.StateClosed:
		if e.LoggedOut {
			r.logger.ErrorContext(ctx, "Session logged out, shutting down", "error", e.Err)
			select {
			case r.fatal <- ErrLoggedOut:
			default:
			}
			return
		}
		r.logger.WarnContext(ctx, "Connection closed, client will reconnect", "error", e.Err)
	default:
		r.logger.DebugContext(ctx, "Connection state changed", "state", e.State)
	}
}

func (r *Router) onMessages(ctx context.Context, e client.MessagesUpsert) {
	if e.Kind != client.UpsertNotify {
		r.logger.DebugContext(ctx, "Skipping non-live messages", "kind", e.Kind, "count", len(e.Messages))
		return
	}
	for i := range e.Messages {
		r.handle(ctx, &e.Messages[i])
	}
}

func (r *Router) onParticipants(ctx context.Context, e client.ParticipantsUpdate) {
	if e.Action == groupcache.ActionRemove && r.includesSelf(e.Participants) {
		r.logger.InfoContext(ctx, "Removed from group, dropping cached metadata", "group_id", e.GroupID)
		r.groups.Invalidate(e.GroupID)
		return
	}
	if err := r.groups.ApplyParticipantUpdate(ctx, e.GroupID, e.Participants, e.Action); err != nil {
		r.logger.WarnContext(ctx, "Dropped participant update", "group_id", e.GroupID, "action", e.Action, "error", err)
	}
}

func (r *Router) includesSelf(participants []groupcache.Participant) bool {
	self := r.client.Self()
	for _, p := range participants {
		if (self.ID != "" && p.Matches(self.ID)) || (self.LID != "" && p.Matches(self.LID)) {
			return true
		}
	}
	return false
}
