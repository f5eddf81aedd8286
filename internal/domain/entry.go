package domain

import "time"

type EntryKind string

const (
	KindSystem EntryKind = "system"
	KindChat   EntryKind = "chat"
	KindDice   EntryKind = "dice"
	KindTopic  EntryKind = "topic"
)

// LogEntry is immutable once appended. ID is assigned by the message log.
type LogEntry struct {
	ID      uint64    `json:"id"`
	Kind    EntryKind `json:"kind"`
	Time    time.Time `json:"time"`
	Name    string    `json:"name,omitempty"`
	Text    string    `json:"text,omitempty"`
	Color   string    `json:"color,omitempty"`
	FromID  ClientID  `json:"fromId,omitempty"`
	Topic   string    `json:"topic,omitempty"`
	DrawnBy string    `json:"drawnBy,omitempty"`
}
