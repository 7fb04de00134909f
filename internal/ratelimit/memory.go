package ratelimit

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count   int
	resetAt time.Time
}

// FixedWindow is an in-process limiter. Counts are lost on restart and are
// not shared between instances.
type FixedWindow struct {
	rule Rule
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

var _ Limiter = (*FixedWindow)(nil)

type Option func(*FixedWindow)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *FixedWindow) { l.now = now }
}

func NewFixedWindow(rule Rule, opts ...Option) *FixedWindow {
	l := &FixedWindow{
		rule:    rule,
		now:     time.Now,
		entries: map[string]*entry{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *FixedWindow) Rule() Rule { return l.rule }

// Check never fails; the error is always nil.
func (l *FixedWindow) Check(_ context.Context, clientKey string) (Decision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[clientKey]
	if !ok || now.After(e.resetAt) {
		e = &entry{count: 1, resetAt: now.Add(l.rule.Window)}
		l.entries[clientKey] = e
		return l.decision(true, l.rule.Limit-1, e), nil
	}
	if e.count >= l.rule.Limit {
		return l.decision(false, 0, e), nil
	}
	e.count++
	return l.decision(true, l.rule.Limit-e.count, e), nil
}

func (l *FixedWindow) decision(allowed bool, remaining int, e *entry) Decision {
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   allowed,
		Remaining: remaining,
		Limit:     l.rule.Limit,
		ResetAt:   e.resetAt,
	}
}

// Sweep drops entries whose window has already passed. The next request from
// such a client starts a fresh window either way, so no decision changes.
func (l *FixedWindow) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for k, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, k)
			removed++
		}
	}
	return removed
}

func (l *FixedWindow) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// StartJanitor sweeps every interval until ctx is cancelled.
func (l *FixedWindow) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.Sweep()
			}
		}
	}()
}
