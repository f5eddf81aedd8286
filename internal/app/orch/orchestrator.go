package orch

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatroom/internal/app"
	"github.com/dkeye/chatroom/internal/core"
	"github.com/dkeye/chatroom/internal/domain"
)

var (
	ErrNotBound   = errors.New("connection not bound")
	ErrNotJoined  = errors.New("not joined to a room")
	ErrBadPayload = errors.New("bad payload")
	ErrNoTopics   = errors.New("topic pool is empty")
)

// Outcome is the result of an admitted-or-rejected room action.
type Outcome struct {
	Accepted  bool
	Rejection domain.Rejection
	Entry     domain.LogEntry
	Resumed   bool
}

func rejected(r domain.Rejection) Outcome { return Outcome{Rejection: r} }

type Orchestrator struct {
	Registry  *app.Registry
	Rooms     core.RoomFactory
	Policy    app.Policy
	Admission *app.Pipeline
	Presence  *app.GraceTracker
	Topics    *app.TopicPool
	Clock     clock.Clock

	InactivityLimit time.Duration

	// Roll returns a value in [1, sides]; replaced in tests.
	Roll func(sides int) int
}

func (o *Orchestrator) now() time.Time {
	if o.Clock == nil {
		return time.Now()
	}
	return o.Clock.Now()
}

func (o *Orchestrator) roll(sides int) int {
	if o.Roll != nil {
		return o.Roll(sides)
	}
	return rand.IntN(sides) + 1
}

// sendTo delivers a private event to one connection, joined or not.
func (o *Orchestrator) sendTo(sid core.SessionID, typ string, payload any) {
	conn, ok := o.Registry.Conn(sid)
	if !ok {
		return
	}
	if err := conn.TrySend(core.EncodeEvent(typ, payload)); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("type", typ).Msg("private send failed")
	}
}

// joined resolves the room and member of sid.
func (o *Orchestrator) joined(sid core.SessionID) (core.RoomService, domain.Member, error) {
	slug, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		return nil, domain.Member{}, ErrNotJoined
	}
	room, ok := o.Rooms.Get(slug)
	if !ok {
		return nil, domain.Member{}, ErrNotJoined
	}
	m, ok := room.Member(sid)
	if !ok {
		return nil, domain.Member{}, ErrNotJoined
	}
	return room, m, nil
}

// publish appends e and applies the backpressure policy to members whose
// buffers were full.
func (o *Orchestrator) publish(room core.RoomService, e domain.LogEntry) domain.LogEntry {
	stored, res := room.Append(e)
	o.handleDropped(room, res)
	return stored
}

func (o *Orchestrator) broadcast(room core.RoomService, typ string, payload any) {
	res := room.Broadcast("", core.EncodeEvent(typ, payload))
	o.handleDropped(room, res)
}

func (o *Orchestrator) handleDropped(room core.RoomService, res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("room", string(room.Slug())).Str("sid", string(slow.ID())).
				Msg("slow member, closing connection")
			o.Registry.Cancel(slow.ID())
		case app.DropFrame, app.NoAction:
		}
	}
}

func (o *Orchestrator) announce(room core.RoomService, text string) domain.LogEntry {
	return o.publish(room, domain.LogEntry{Kind: domain.KindSystem, Time: o.now(), Text: text})
}

func (o *Orchestrator) broadcastPresence(room core.RoomService) {
	o.broadcast(room, core.EvUserList, room.Names())
	o.broadcast(room, core.EvTypingUsers, room.TypingNames())
}

// Online lists members per room for the admin surface.
func (o *Orchestrator) Online() map[domain.RoomSlug][]core.MemberDTO {
	out := make(map[domain.RoomSlug][]core.MemberDTO)
	for _, r := range o.Rooms.All() {
		if ms := r.MembersSnapshot(); len(ms) > 0 {
			out[r.Slug()] = ms
		}
	}
	return out
}
