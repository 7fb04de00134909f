package mailer

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttled caps how fast sends reach the provider. Callers block until a
// slot frees up or their context ends.
type Throttled struct {
	next Dispatcher
	lim  *rate.Limiter
}

var _ Dispatcher = (*Throttled)(nil)

// NewThrottled returns next unchanged when rps is not positive.
func NewThrottled(next Dispatcher, rps float64, burst int) Dispatcher {
	if rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttled{next: next, lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *Throttled) Send(ctx context.Context, msg Message) error {
	if err := t.lim.Wait(ctx); err != nil {
		return err
	}
	return t.next.Send(ctx, msg)
}
