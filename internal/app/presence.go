package app

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dkeye/chatroom/internal/domain"
)

type graceKey struct {
	client domain.ClientID
	room   domain.RoomSlug
}

// GraceTracker remembers involuntary departures so a quick rejoin of the same
// client to the same room counts as a resume rather than a new arrival.
type GraceTracker struct {
	mu     sync.Mutex
	clk    clock.Clock
	window time.Duration
	marks  map[graceKey]time.Time
}

func NewGraceTracker(clk clock.Clock, window time.Duration) *GraceTracker {
	return &GraceTracker{
		clk:    clk,
		window: window,
		marks:  make(map[graceKey]time.Time),
	}
}

// MarkDisconnect is called for transport drops only, never for explicit leave.
func (g *GraceTracker) MarkDisconnect(client domain.ClientID, room domain.RoomSlug) {
	if client == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.marks[graceKey{client, room}] = g.clk.Now()
}

// Clear drops the departure mark of client in room, if any.
func (g *GraceTracker) Clear(client domain.ClientID, room domain.RoomSlug) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.marks, graceKey{client, room})
}

// Resume consumes the departure mark and reports whether it is within the window.
func (g *GraceTracker) Resume(client domain.ClientID, room domain.RoomSlug) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := graceKey{client, room}
	at, ok := g.marks[key]
	if !ok {
		return false
	}
	delete(g.marks, key)
	return g.clk.Now().Sub(at) <= g.window
}

// Prune forgets marks that can no longer resume anything.
func (g *GraceTracker) Prune() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.clk.Now()
	n := 0
	for k, at := range g.marks {
		if now.Sub(at) > g.window {
			delete(g.marks, k)
			n++
		}
	}
	return n
}

func (g *GraceTracker) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.marks)
}
