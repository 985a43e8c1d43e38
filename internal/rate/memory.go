package rate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const sweepEvery = 1024

type memEntry struct {
	cooldown     *rate.Limiter
	windowStart  time.Time
	count        int
	blockedUntil time.Time
	lastSeen     time.Time
}

// MemoryLimiter is a single-instance limiter for dev and tests.
type MemoryLimiter struct {
	mu      sync.Mutex
	cfg     Config
	entries map[string]*memEntry
	now     func() time.Time
	calls   int
}

func NewMemoryLimiter(cfg Config, now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{cfg: cfg.withDefaults(), entries: map[string]*memEntry{}, now: now}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) error {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls%sweepEvery == 0 {
		l.sweep(now)
	}

	e, ok := l.entries[key]
	if !ok {
		e = &memEntry{
			cooldown:    rate.NewLimiter(rate.Every(l.cfg.Cooldown), 1),
			windowStart: now,
		}
		l.entries[key] = e
	}
	e.lastSeen = now

	if now.Before(e.blockedUntil) {
		return &LimitError{Err: ErrBlocked, RetryAfter: e.blockedUntil.Sub(now)}
	}

	if tokens := e.cooldown.TokensAt(now); tokens < 1 {
		wait := time.Duration((1 - tokens) * float64(l.cfg.Cooldown))
		return &LimitError{Err: ErrCooldown, RetryAfter: wait}
	}

	if now.Sub(e.windowStart) >= l.cfg.Window {
		e.windowStart = now
		e.count = 0
	}
	e.count++
	if e.count > l.cfg.MaxPerWindow {
		e.blockedUntil = now.Add(l.cfg.blockFor())
		e.windowStart = e.blockedUntil
		e.count = 0
		return &LimitError{Err: ErrBlocked, RetryAfter: l.cfg.blockFor()}
	}

	e.cooldown.AllowN(now, 1)
	return nil
}

func (l *MemoryLimiter) Refund(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[key]; ok {
		e.cooldown = rate.NewLimiter(rate.Every(l.cfg.Cooldown), 1)
	}
	return nil
}

// sweep drops keys that can no longer affect a decision.
func (l *MemoryLimiter) sweep(now time.Time) {
	idle := l.cfg.Window + l.cfg.blockFor()
	for k, e := range l.entries {
		if now.Sub(e.lastSeen) > idle && !now.Before(e.blockedUntil) {
			delete(l.entries, k)
		}
	}
}

var _ Limiter = (*MemoryLimiter)(nil)
