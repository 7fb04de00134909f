// Package ratelimit admits or rejects form submissions per client using a
// fixed counting window.
//
// Two stores are provided: FixedWindow keeps counters in process memory and
// RedisWindow keeps them in Redis so every instance shares one budget.
package ratelimit

import (
	"context"
	"time"
)

// Rule configures one call site.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of a single Check.
type Decision struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
}

type Limiter interface {
	Check(ctx context.Context, clientKey string) (Decision, error)
}
