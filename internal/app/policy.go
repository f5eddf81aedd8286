package app

import (
	"fmt"
	"sync"

	"github.com/dkeye/chatroom/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a member whose send buffer is full.
// A dropped frame is never lost for good: the client's catch-up poll
// returns it from the log.
type Policy interface {
	OnBackPressure(room core.RoomService, member core.MemberSession) BackpressureAction
	Forget(sid core.SessionID)
}

// KickPolicy disconnects on the first dropped frame.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(core.RoomService, core.MemberSession) BackpressureAction {
	return KickMember
}

func (KickPolicy) Forget(core.SessionID) {}

// TolerantPolicy keeps slow members; they resync through catch-up.
type TolerantPolicy struct{}

func (TolerantPolicy) OnBackPressure(core.RoomService, core.MemberSession) BackpressureAction {
	return DropFrame
}

func (TolerantPolicy) Forget(core.SessionID) {}

// StrikePolicy drops frames for a member until it has missed limit of them,
// then disconnects it.
type StrikePolicy struct {
	limit   int
	mu      sync.Mutex
	strikes map[core.SessionID]int
}

func NewStrikePolicy(limit int) *StrikePolicy {
	if limit < 1 {
		limit = 1
	}
	return &StrikePolicy{limit: limit, strikes: make(map[core.SessionID]int)}
}

func (p *StrikePolicy) OnBackPressure(_ core.RoomService, member core.MemberSession) BackpressureAction {
	p.mu.Lock()
	defer p.mu.Unlock()
	sid := member.ID()
	p.strikes[sid]++
	if p.strikes[sid] >= p.limit {
		delete(p.strikes, sid)
		return KickMember
	}
	return DropFrame
}

func (p *StrikePolicy) Forget(sid core.SessionID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.strikes, sid)
}

// NewPolicy builds the policy named by the backpressure config key.
func NewPolicy(name string, maxDropped int) (Policy, error) {
	switch name {
	case "strike", "":
		return NewStrikePolicy(maxDropped), nil
	case "kick":
		return KickPolicy{}, nil
	case "tolerant":
		return TolerantPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown backpressure policy %q", name)
	}
}
