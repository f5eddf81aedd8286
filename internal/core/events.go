package core

import (
	"encoding/json"
	"time"

	"github.com/dkeye/chatroom/internal/domain"
	"github.com/rs/zerolog/log"
)

// Outbound event types on the push channel.
const (
	EvUserList        = "user-list"
	EvTypingUsers     = "typing-users"
	EvChatMessage     = "chat-message"
	EvSystemMessage   = "system-message"
	EvTopicResult     = "topic-result"
	EvRateLimit       = "rate-limit"
	EvRoomFull        = "room-full"
	EvForceLeave      = "force-leave"
	EvChatLog         = "chat-log"
	EvMessageRejected = "message-rejected"
	EvJoined          = "joined"
	EvLeft            = "left"
	EvError           = "error"
	EvPong            = "pong"
)

// Force-leave reasons.
const (
	LeaveBanned   = "banned"
	LeaveInactive = "inactive"
	LeaveKicked   = "kicked"
)

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type ChatMessage struct {
	ID     uint64          `json:"id"`
	Time   time.Time       `json:"time"`
	Name   string          `json:"name"`
	Text   string          `json:"text"`
	FromID domain.ClientID `json:"fromId"`
	Color  string          `json:"color"`
}

type SystemMessage struct {
	ID   uint64           `json:"id"`
	Time time.Time        `json:"time"`
	Text string           `json:"text"`
	Kind domain.EntryKind `json:"kind,omitempty"`
}

type TopicResult struct {
	ID      uint64    `json:"id"`
	Time    time.Time `json:"time"`
	Topic   string    `json:"topic"`
	DrawnBy string    `json:"drawnBy"`
}

// EncodeEvent wraps payload in the {"type","data"} envelope.
func EncodeEvent(typ string, payload any) Frame {
	b, err := json.Marshal(envelope{Type: typ, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("module", "core.events").Str("type", typ).Msg("encode event")
		return nil
	}
	return b
}

// EncodeEntry renders a log entry as the push event for its kind.
func EncodeEntry(e domain.LogEntry) Frame {
	switch e.Kind {
	case domain.KindChat:
		return EncodeEvent(EvChatMessage, ChatMessage{
			ID: e.ID, Time: e.Time, Name: e.Name, Text: e.Text, FromID: e.FromID, Color: e.Color,
		})
	case domain.KindTopic:
		return EncodeEvent(EvTopicResult, TopicResult{
			ID: e.ID, Time: e.Time, Topic: e.Topic, DrawnBy: e.DrawnBy,
		})
	default:
		return EncodeEvent(EvSystemMessage, SystemMessage{
			ID: e.ID, Time: e.Time, Text: e.Text, Kind: e.Kind,
		})
	}
}
