package app

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dkeye/chatroom/internal/domain"
)

type limiterKey struct {
	client domain.ClientID
	room   domain.RoomSlug
}

// ActionLimiter enforces a minimum interval between accepted actions of one
// client in one room. Keyed by ClientID, so it survives reconnects.
type ActionLimiter struct {
	mu   sync.Mutex
	clk  clock.Clock
	last map[limiterKey]time.Time
}

func NewActionLimiter(clk clock.Clock) *ActionLimiter {
	return &ActionLimiter{
		clk:  clk,
		last: make(map[limiterKey]time.Time),
	}
}

// Admit checks the interval and, if it has elapsed, runs next. The clock is
// reset only when next accepts, so a rejected action leaves no trace.
func (rl *ActionLimiter) Admit(
	client domain.ClientID,
	room domain.RoomSlug,
	interval time.Duration,
	next func() (domain.Rejection, bool),
) (domain.Rejection, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := limiterKey{client: client, room: room}
	now := rl.clk.Now()
	if last, ok := rl.last[key]; ok && interval > 0 {
		if wait := interval - now.Sub(last); wait > 0 {
			return domain.Rejection{Code: domain.RateLimited, WaitMs: ceilMillis(wait)}, false
		}
	}
	if next != nil {
		if rej, ok := next(); !ok {
			return rej, false
		}
	}
	rl.last[key] = now
	return domain.Rejection{}, true
}

// Prune forgets clocks older than maxAge.
func (rl *ActionLimiter) Prune(maxAge time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.clk.Now()
	n := 0
	for k, t := range rl.last {
		if now.Sub(t) > maxAge {
			delete(rl.last, k)
			n++
		}
	}
	return n
}

func ceilMillis(d time.Duration) int64 {
	return int64((d + time.Millisecond - 1) / time.Millisecond)
}
