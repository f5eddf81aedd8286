package orch

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatroom/internal/app"
	"github.com/dkeye/chatroom/internal/core"
	"github.com/dkeye/chatroom/internal/domain"
)

type JoinRequest struct {
	Room     string
	Name     string
	Color    string
	ClientID string
	Gender   string
}

type Joined struct {
	SessionID core.SessionID  `json:"sessionId"`
	Room      domain.RoomSlug `json:"room"`
	ClientID  domain.ClientID `json:"clientId"`
	Name      string          `json:"name"`
	Color     string          `json:"color"`
	Resumed   bool            `json:"resumed"`
}

type leaveMode int

const (
	leaveExplicit leaveMode = iota
	leaveDisconnect
	leaveEvicted
	leaveKicked
)

// Join admits sid into a room. A session already in a room leaves it first.
func (o *Orchestrator) Join(sid core.SessionID, req JoinRequest) (Outcome, error) {
	room, err := o.Rooms.Resolve(req.Room)
	if err != nil {
		return Outcome{}, err
	}
	name, err := domain.NormalizeName(req.Name)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	client, err := domain.NormalizeClientID(req.ClientID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	conn, ok := o.Registry.Conn(sid)
	if !ok {
		return Outcome{}, ErrNotBound
	}

	if prev, _, ok := o.Registry.RoomOf(sid); ok {
		o.removeMember(sid, leaveExplicit)
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("from_room", string(prev)).Msg("left previous room")
	}

	rej, ok := o.Admission.Check(app.AdmissionRequest{
		Action: app.ActionJoin,
		Room:   room,
		Client: client,
		IP:     o.Registry.IP(sid),
	})
	if !ok {
		o.rejectJoin(sid, room, rej)
		return rejected(rej), nil
	}

	meta := domain.NewMember(name, domain.NormalizeColor(req.Color), domain.NormalizeGender(req.Gender), client, room.Slug())
	sess := core.NewMemberSession(sid, meta, conn)
	// a concurrent join may have taken the last seat since Check
	if !room.TryAddMember(sid, sess, o.Admission.MaxMembers) {
		rej = domain.Rejection{Code: domain.CapacityExceeded}
		o.rejectJoin(sid, room, rej)
		return rejected(rej), nil
	}
	o.Registry.BindSession(sid, room.Slug(), sess)
	resumed := o.Presence.Resume(client, room.Slug())

	o.sendTo(sid, core.EvJoined, Joined{
		SessionID: sid, Room: room.Slug(), ClientID: client,
		Name: meta.Name, Color: meta.Color, Resumed: resumed,
	})
	o.sendTo(sid, core.EvChatLog, room.Snapshot())
	o.broadcastPresence(room)

	out := Outcome{Accepted: true, Resumed: resumed}
	if !resumed {
		out.Entry = o.announce(room, fmt.Sprintf("%s joined the room", name))
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room.Slug())).
		Str("client", string(client)).Bool("resumed", resumed).Msg("joined")
	return out, nil
}

func (o *Orchestrator) rejectJoin(sid core.SessionID, room core.RoomService, rej domain.Rejection) {
	switch rej.Code {
	case domain.CapacityExceeded:
		o.sendTo(sid, core.EvRoomFull, map[string]any{"room": room.Slug()})
	case domain.Banned:
		payload := map[string]any{"reason": core.LeaveBanned}
		if rej.Ban != nil && rej.Ban.Reason != "" {
			payload["detail"] = rej.Ban.Reason
		}
		o.sendTo(sid, core.EvForceLeave, payload)
		o.Registry.Cancel(sid)
	}
}

// Leave is the explicit leave; it never marks a reconnection grace.
func (o *Orchestrator) Leave(sid core.SessionID) error {
	if _, _, ok := o.Registry.RoomOf(sid); !ok {
		return ErrNotJoined
	}
	o.removeMember(sid, leaveExplicit)
	o.sendTo(sid, core.EvLeft, nil)
	return nil
}

// OnDisconnect runs when the transport is gone. The departure is recorded so
// a quick rejoin of the same client resumes silently.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	if _, _, ok := o.Registry.RoomOf(sid); ok {
		o.removeMember(sid, leaveDisconnect)
	}
	if o.Policy != nil {
		o.Policy.Forget(sid)
	}
	o.Registry.Unbind(sid)
}

// Kick force-removes a live member and closes its connection.
func (o *Orchestrator) Kick(slug domain.RoomSlug, sid core.SessionID) error {
	current, _, ok := o.Registry.RoomOf(sid)
	if !ok || current != slug {
		return ErrNotJoined
	}
	o.sendTo(sid, core.EvForceLeave, map[string]any{"reason": core.LeaveKicked})
	o.removeMember(sid, leaveKicked)
	o.Registry.Cancel(sid)
	return nil
}

// removeMember is the single membership-removal path for leave, disconnect,
// eviction and kick.
func (o *Orchestrator) removeMember(sid core.SessionID, mode leaveMode) {
	slug, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		return
	}
	o.Registry.RemoveRoom(sid)
	room, ok := o.Rooms.Get(slug)
	if !ok {
		return
	}
	sess, ok := room.RemoveMember(sid)
	if !ok {
		return
	}
	meta := *sess.Meta()

	if mode == leaveDisconnect {
		o.Presence.MarkDisconnect(meta.Client, slug)
	} else {
		// a deliberate departure ends any pending resume from another tab
		o.Presence.Clear(meta.Client, slug)
	}
	o.broadcastPresence(room)

	switch mode {
	case leaveExplicit:
		o.announce(room, fmt.Sprintf("%s left the room", meta.Name))
	case leaveEvicted:
		o.announce(room, fmt.Sprintf("%s was removed for inactivity", meta.Name))
	case leaveKicked:
		o.announce(room, fmt.Sprintf("%s was removed by a moderator", meta.Name))
	case leaveDisconnect:
	}
}
