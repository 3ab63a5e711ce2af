// Package groupcache keeps a local mirror of group metadata.
//
// The client only offers a full metadata fetch plus best-effort incremental events.
// The cache stores the last fetched snapshot per group for a fixed TTL and folds
// participant and settings events into it, so admin checks do not need a network
// round-trip. Concurrent writes to the same group are last-write-wins.
package groupcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/edgard/basebot/internal/jid"
)

// DefaultTTL is how long an entry lives after its last write.
const DefaultTTL = time.Hour

// ErrUnknownAction is returned for participant updates with an unsupported action.
var ErrUnknownAction = errors.New("unknown participant action")

// Fetcher loads full group metadata from the remote side.
type Fetcher interface {
	GroupMetadata(ctx context.Context, groupID string) (*GroupState, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, groupID string) (*GroupState, error)

// GroupMetadata calls f.
func (f FetcherFunc) GroupMetadata(ctx context.Context, groupID string) (*GroupState, error) {
	return f(ctx, groupID)
}

type entry struct {
	state   *GroupState
	expires time.Time
}

// Cache maps group identifiers to GroupState snapshots.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry

	fetcher Fetcher
	flight  singleflight.Group
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates an empty cache backed by fetcher.
func New(fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		fetcher: fetcher,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "group_cache")
	return c
}

// Get returns a copy of the cached state for groupID. Expired entries are absent.
func (c *Cache) Get(groupID string) (*GroupState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.live(groupID)
	if !ok {
		return nil, false
	}
	return e.state.Clone(), true
}

// Ensure returns the cached state for groupID, fetching and storing it when absent.
// Concurrent calls for the same group share one fetch. The shared fetch is not
// cancelled with any single caller; each caller stops waiting when its own ctx is done.
func (c *Cache) Ensure(ctx context.Context, groupID string) (*GroupState, error) {
	if g, ok := c.Get(groupID); ok {
		return g, nil
	}

	ch := c.flight.DoChan(groupID, func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx), groupID)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch metadata for %s: %w", groupID, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*GroupState).Clone(), nil
	}
}

// fetch loads groupID from the fetcher and stores it with a fresh TTL.
func (c *Cache) fetch(ctx context.Context, groupID string) (*GroupState, error) {
	if c.fetcher == nil {
		return nil, fmt.Errorf("fetch metadata for %s: no fetcher configured", groupID)
	}
	g, err := c.fetcher.GroupMetadata(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata for %s: %w", groupID, err)
	}
	if g == nil {
		return nil, fmt.Errorf("fetch metadata for %s: empty response", groupID)
	}

	g = g.Clone()
	if g.ID == "" {
		g.ID = groupID
	}
	g.Size = len(g.Participants)

	c.mu.Lock()
	c.store(groupID, g)
	out := g.Clone()
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "Fetched group metadata", "group_id", groupID, "participants", out.Size)
	return out, nil
}

// ApplyParticipantUpdate folds a participant event into the cached state. An uncached
// group is fetched first; if that fails the update is dropped and the error returned.
func (c *Cache) ApplyParticipantUpdate(ctx context.Context, groupID string, participants []Participant, action Action) error {
	switch action {
	case ActionAdd, ActionRemove, ActionPromote, ActionDemote:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	if _, err := c.Ensure(ctx, groupID); err != nil {
		return fmt.Errorf("drop %s update: %w", action, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.live(groupID)
	if !ok {
		// Invalidated between fetch and apply.
		return nil
	}
	for _, p := range participants {
		if jid.Number(p.ID) == "" && jid.Number(p.PhoneNumber) == "" {
			continue
		}
		e.state.apply(p, action)
	}
	e.state.Size = len(e.state.Participants)
	e.expires = c.now().Add(c.ttl)

	c.logger.DebugContext(ctx, "Applied participant update",
		"group_id", groupID, "action", action, "count", len(participants), "size", e.state.Size)
	return nil
}

// ApplyGroupUpdate merges patch into the cached state, fetching the group first when
// uncached. Broadcast identifiers are ignored.
func (c *Cache) ApplyGroupUpdate(ctx context.Context, groupID string, patch Patch) error {
	if groupID == "" {
		return nil
	}
	if jid.IsBroadcast(groupID) {
		c.logger.WarnContext(ctx, "Skipping group update for broadcast", "group_id", groupID)
		return nil
	}

	if _, err := c.Ensure(ctx, groupID); err != nil {
		return fmt.Errorf("drop group update: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.live(groupID)
	if !ok {
		return nil
	}
	patch.applyTo(e.state)
	e.expires = c.now().Add(c.ttl)
	return nil
}

// Upsert inserts or replaces groups. A group with nil Participants keeps the
// participants of a live cached entry.
func (c *Cache) Upsert(groups ...GroupState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, g := range groups {
		if g.ID == "" {
			continue
		}
		if jid.IsBroadcast(g.ID) {
			c.logger.Warn("Skipping upsert for broadcast", "group_id", g.ID)
			continue
		}

		next := g.Clone()
		if next.Participants == nil {
			if e, ok := c.live(g.ID); ok {
				next.Participants = e.state.Clone().Participants
			} else {
				next.Participants = []Participant{}
			}
		}
		next.Size = len(next.Participants)
		c.store(g.ID, next)
	}
}

// Invalidate evicts groupID.
func (c *Cache) Invalidate(groupID string) {
	c.mu.Lock()
	delete(c.entries, groupID)
	c.mu.Unlock()
}

// InvalidateAll evicts every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// FindParticipant scans every live group for a participant matching numberOrID and
// returns the first hit. Iteration order is unspecified.
func (c *Cache) FindParticipant(numberOrID string) (ParticipantMatch, bool) {
	if jid.Number(numberOrID) == "" {
		return ParticipantMatch{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	for _, e := range c.entries {
		if !now.Before(e.expires) {
			continue
		}
		if p, ok := e.state.Find(numberOrID); ok {
			return ParticipantMatch{
				GroupID:           e.state.ID,
				Subject:           e.state.Subject,
				Participant:       p,
				TotalParticipants: e.state.Size,
			}, true
		}
	}
	return ParticipantMatch{}, false
}

// Sweep removes expired entries and returns how many were evicted.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	evicted := 0
	for id, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, id)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// live returns the unexpired entry for groupID. Callers must hold c.mu.
func (c *Cache) live(groupID string) (*entry, bool) {
	e, ok := c.entries[groupID]
	if !ok || !c.now().Before(e.expires) {
		return nil, false
	}
	return e, true
}

// store writes g with a fresh TTL. Callers must hold c.mu for writing.
func (c *Cache) store(groupID string, g *GroupState) {
	c.entries[groupID] = &entry{state: g, expires: c.now().Add(c.ttl)}
}
