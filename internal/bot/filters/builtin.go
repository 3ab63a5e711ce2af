package filters

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/edgard/basebot/internal/config"
	"github.com/edgard/basebot/internal/jid"
	"github.com/edgard/basebot/internal/message"
)

// Built-in filter priorities.
const (
	PriorityIgnoreBroadcast = 10
	PriorityRateLimit       = 50
)

// Deps provides dependencies for the built-in filters.
type Deps struct {
	Logger *slog.Logger
	Config *config.Config
}

// RegisterAllFilters returns the built-in filters enabled by configuration.
func RegisterAllFilters(deps Deps) []Filter {
	list := []Filter{IgnoreBroadcast()}

	if rl := deps.Config.Filters.RateLimit; rl.Enabled {
		list = append(list, NewRateLimiter(rl, deps.Config.Bot.IsOwner))
	}

	deps.Logger.Info("Initialized filters", "count", len(list))
	return list
}

// IgnoreBroadcast stops messages posted to status and broadcast chats.
func IgnoreBroadcast() Filter {
	return New("ignore_broadcast", PriorityIgnoreBroadcast, func(_ context.Context, inv *message.Invocation) (Verdict, error) {
		if inv.Chat == "" || jid.IsBroadcast(inv.Chat) {
			return Stop, nil
		}
		return Continue, nil
	})
}

// RateLimiter throttles command invocations per sender with a token bucket.
// Non-command messages always pass. Senders whose bucket has refilled are forgotten,
// so the sender map only holds recently active senders.
type RateLimiter struct {
	limit  rate.Limit
	burst  int
	exempt func(ids ...string) bool
	now    func() time.Time
	idle   time.Duration

	mu        sync.Mutex
	senders   map[string]*rate.Limiter
	lastSweep time.Time
}

// NewRateLimiter creates a limiter allowing cfg.PerMinute commands per sender with
// bursts of cfg.Burst. Senders for which exempt returns true are never limited.
func NewRateLimiter(cfg config.RateLimitConfig, exempt func(ids ...string) bool) *RateLimiter {
	perMinute := max(cfg.PerMinute, 1)
	burst := max(cfg.Burst, 1)
	every := time.Minute / time.Duration(perMinute)
	return &RateLimiter{
		limit:   rate.Every(every),
		burst:   burst,
		exempt:  exempt,
		now:     time.Now,
		idle:    every * time.Duration(burst),
		senders: make(map[string]*rate.Limiter),
	}
}

// Name implements Filter.
func (r *RateLimiter) Name() string { return "rate_limit" }

// Priority implements Prioritized.
func (r *RateLimiter) Priority() int { return PriorityRateLimit }

// Process implements Filter.
func (r *RateLimiter) Process(_ context.Context, inv *message.Invocation) (Verdict, error) {
	if !inv.IsCommand() {
		return Continue, nil
	}
	if r.exempt != nil && r.exempt(inv.Sender, inv.SenderAlt) {
		return Continue, nil
	}
	now := r.now()
	if r.limiter(inv.Sender, now).AllowN(now, 1) {
		return Continue, nil
	}
	return Stop, nil
}

// Sweep forgets senders whose bucket is full at now and returns how many were
// dropped. Process calls it at most once per refill period.
func (r *RateLimiter) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweep(now)
}

// Len returns the number of tracked senders.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.senders)
}

func (r *RateLimiter) sweep(now time.Time) int {
	r.lastSweep = now
	full := float64(r.burst)
	n := 0
	for key, l := range r.senders {
		if l.TokensAt(now) >= full {
			delete(r.senders, key)
			n++
		}
	}
	return n
}

func (r *RateLimiter) limiter(sender string, now time.Time) *rate.Limiter {
	key := jid.Number(sender)
	if key == "" {
		key = sender
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.lastSweep) >= r.idle {
		r.sweep(now)
	}
	l, ok := r.senders[key]
	if !ok {
		l = rate.NewLimiter(r.limit, r.burst)
		r.senders[key] = l
	}
	return l
}
