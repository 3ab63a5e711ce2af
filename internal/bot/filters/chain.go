// Package filters implements the pre-dispatch handler chain. Filters run in ascending
// priority before command lookup and may veto further processing of a message.
package filters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/edgard/basebot/internal/message"
)

// DefaultPriority applies to filters that do not implement Prioritized.
const DefaultPriority = 100

// ErrInvalidFilter is returned by Register for filters that cannot be run.
var ErrInvalidFilter = errors.New("invalid filter")

// Verdict is the outcome of one filter.
type Verdict int

const (
	// Continue passes the message to the next filter.
	Continue Verdict = iota
	// Stop ends the chain; the message is not dispatched.
	Stop
)

func (v Verdict) String() string {
	if v == Stop {
		return "stop"
	}
	return "continue"
}

// Filter inspects an invocation before dispatch.
type Filter interface {
	Name() string
	Process(ctx context.Context, inv *message.Invocation) (Verdict, error)
}

// Prioritized is implemented by filters that want to run earlier or later than
// DefaultPriority. Lower values run first.
type Prioritized interface {
	Priority() int
}

type funcFilter struct {
	name     string
	priority int
	fn       func(ctx context.Context, inv *message.Invocation) (Verdict, error)
}

func (f *funcFilter) Name() string  { return f.name }
func (f *funcFilter) Priority() int { return f.priority }

func (f *funcFilter) Process(ctx context.Context, inv *message.Invocation) (Verdict, error) {
	return f.fn(ctx, inv)
}

// New builds a Filter from a function.
func New(name string, priority int, fn func(ctx context.Context, inv *message.Invocation) (Verdict, error)) Filter {
	return &funcFilter{name: name, priority: priority, fn: fn}
}

type registered struct {
	filter   Filter
	priority int
}

// Chain is an ordered set of filters. It is safe for concurrent use.
type Chain struct {
	mu      sync.RWMutex
	filters []registered
	logger  *slog.Logger
}

// NewChain creates an empty chain.
func NewChain(logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Chain{logger: logger.With("component", "filter_chain")}
}

// Register adds f to the chain. Filters with equal priority keep registration order.
func (c *Chain) Register(f Filter) error {
	if f == nil {
		return fmt.Errorf("%w: nil filter", ErrInvalidFilter)
	}
	name := f.Name()
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidFilter)
	}

	priority := DefaultPriority
	if p, ok := f.(Prioritized); ok {
		priority = p.Priority()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.filters = append(c.filters, registered{filter: f, priority: priority})
	slices.SortStableFunc(c.filters, func(a, b registered) int { return a.priority - b.priority })

	c.logger.Debug("Registered filter", "filter", name, "priority", priority)
	return nil
}

// Names returns the filter names in execution order.
func (c *Chain) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.filters))
	for i, r := range c.filters {
		names[i] = r.filter.Name()
	}
	return names
}

// RunAll runs every filter against inv and reports whether the message may proceed.
// The first filter returning Stop without an error ends the chain. Errors and panics
// are logged and the chain moves on.
func (c *Chain) RunAll(ctx context.Context, inv *message.Invocation) bool {
	c.mu.RLock()
	snapshot := slices.Clone(c.filters)
	c.mu.RUnlock()

	for _, r := range snapshot {
		name := r.filter.Name()
		verdict, err := c.run(ctx, r.filter, inv)
		if err != nil {
			c.logger.WarnContext(ctx, "Filter failed, continuing", "filter", name, "chat_id", inv.Chat, "error", err)
			continue
		}
		if verdict == Stop {
			c.logger.DebugContext(ctx, "Message stopped by filter", "filter", name, "chat_id", inv.Chat, "message_id", inv.ID)
			return false
		}
	}
	return true
}

func (c *Chain) run(ctx context.Context, f Filter, inv *message.Invocation) (verdict Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.ErrorContext(ctx, "Filter panicked", "filter", f.Name(), "panic", r, "stack", string(debug.Stack()))
			verdict, err = Continue, fmt.Errorf("panic: %v", r)
		}
	}()
	return f.Process(ctx, inv)
}
