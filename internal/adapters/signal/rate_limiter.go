package signal

import (
	"golang.org/x/time/rate"
)

// frameLimiter caps inbound frames per connection before they reach the
// orchestrator. Room-level admission is separate and keyed by client id.
type frameLimiter struct {
	lim *rate.Limiter
}

// newFrameLimiter returns nil when r <= 0, which allows everything.
func newFrameLimiter(r float64, burst int) *frameLimiter {
	if r <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &frameLimiter{lim: rate.NewLimiter(rate.Limit(r), burst)}
}

func (l *frameLimiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.lim.Allow()
}
