package orch

import (
	"fmt"
	"strings"

	"github.com/dkeye/chatroom/internal/app"
	"github.com/dkeye/chatroom/internal/core"
	"github.com/dkeye/chatroom/internal/domain"
)

// admit runs the pipeline and turns a rejection into a private notice.
func (o *Orchestrator) admit(sid core.SessionID, req app.AdmissionRequest) (domain.Rejection, bool) {
	rej, ok := o.Admission.Check(req)
	if ok {
		return rej, true
	}
	switch rej.Code {
	case domain.RateLimited:
		o.sendTo(sid, core.EvRateLimit, map[string]any{"waitMs": rej.WaitMs})
	case domain.ModerationRejected:
		o.sendTo(sid, core.EvMessageRejected, map[string]any{"reason": rej.Reason})
	}
	return rej, false
}

func (o *Orchestrator) SendMessage(sid core.SessionID, text string) (Outcome, error) {
	room, m, err := o.joined(sid)
	if err != nil {
		return Outcome{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Outcome{}, fmt.Errorf("%w: empty message", ErrBadPayload)
	}
	rej, ok := o.admit(sid, app.AdmissionRequest{
		Action: app.ActionMessage, Room: room, Client: m.Client, Text: text,
	})
	if !ok {
		return rejected(rej), nil
	}

	room.Touch(sid)
	if room.SetTyping(sid, false) {
		o.broadcast(room, core.EvTypingUsers, room.TypingNames())
	}
	e := o.publish(room, domain.LogEntry{
		Kind:   domain.KindChat,
		Time:   o.now(),
		Name:   m.Name,
		Text:   text,
		Color:  m.Color,
		FromID: m.Client,
	})
	return Outcome{Accepted: true, Entry: e}, nil
}

// RollDice rolls one die with the given number of sides.
func (o *Orchestrator) RollDice(sid core.SessionID, sides int) (Outcome, error) {
	room, m, err := o.joined(sid)
	if err != nil {
		return Outcome{}, err
	}
	if sides < 2 {
		return Outcome{}, fmt.Errorf("%w: dice needs at least two sides", ErrBadPayload)
	}
	rej, ok := o.admit(sid, app.AdmissionRequest{Action: app.ActionDice, Room: room, Client: m.Client})
	if !ok {
		return rejected(rej), nil
	}

	room.Touch(sid)
	v := o.roll(sides)
	e := o.publish(room, domain.LogEntry{
		Kind:   domain.KindDice,
		Time:   o.now(),
		Name:   m.Name,
		Text:   fmt.Sprintf("%s rolled 1d%d: %d", m.Name, sides, v),
		Color:  m.Color,
		FromID: m.Client,
	})
	return Outcome{Accepted: true, Entry: e}, nil
}

func (o *Orchestrator) DrawTopic(sid core.SessionID) (Outcome, error) {
	room, m, err := o.joined(sid)
	if err != nil {
		return Outcome{}, err
	}
	if o.Topics.Len() == 0 {
		return Outcome{}, ErrNoTopics
	}
	rej, ok := o.admit(sid, app.AdmissionRequest{Action: app.ActionTopic, Room: room, Client: m.Client})
	if !ok {
		return rejected(rej), nil
	}
	topic, ok := o.Topics.Draw()
	if !ok {
		return Outcome{}, ErrNoTopics
	}

	room.Touch(sid)
	e := o.publish(room, domain.LogEntry{
		Kind:    domain.KindTopic,
		Time:    o.now(),
		Topic:   topic,
		DrawnBy: m.Name,
		FromID:  m.Client,
	})
	return Outcome{Accepted: true, Entry: e}, nil
}

func (o *Orchestrator) SetTyping(sid core.SessionID, typing bool) error {
	room, _, err := o.joined(sid)
	if err != nil {
		return err
	}
	room.Touch(sid)
	if room.SetTyping(sid, typing) {
		o.broadcast(room, core.EvTypingUsers, room.TypingNames())
	}
	return nil
}

func (o *Orchestrator) ChangeName(sid core.SessionID, raw string) error {
	room, m, err := o.joined(sid)
	if err != nil {
		return err
	}
	name, err := domain.NormalizeName(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if name == m.Name {
		return nil
	}
	room.UpdateMember(sid, func(meta *domain.Member) { meta.Name = name })
	room.Touch(sid)
	o.broadcastPresence(room)
	o.announce(room, fmt.Sprintf("%s is now known as %s", m.Name, name))
	return nil
}

func (o *Orchestrator) ChangeColor(sid core.SessionID, raw string) error {
	room, _, err := o.joined(sid)
	if err != nil {
		return err
	}
	color := domain.NormalizeColor(raw)
	room.UpdateMember(sid, func(meta *domain.Member) { meta.Color = color })
	room.Touch(sid)
	return nil
}

// Resync sends the full retained window to sid.
func (o *Orchestrator) Resync(sid core.SessionID) error {
	room, _, err := o.joined(sid)
	if err != nil {
		return err
	}
	o.sendTo(sid, core.EvChatLog, room.Snapshot())
	return nil
}
