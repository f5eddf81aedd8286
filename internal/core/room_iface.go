package core

import (
	"context"
	"time"

	"github.com/dkeye/chatroom/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	SessionID  SessionID       `json:"sessionId"`
	Name       string          `json:"name"`
	Color      string          `json:"color"`
	Gender     domain.Gender   `json:"gender,omitempty"`
	ClientID   domain.ClientID `json:"clientId"`
	LastActive time.Time       `json:"lastActive"`
}

// RoomService is the core-facing API of a room.
// It owns membership, typing state and the message log, but never touches
// transport resources beyond TrySend.
type RoomService interface {
	Slug() domain.RoomSlug
	MemberCount() int
	MembersSnapshot() []MemberDTO
	Names() []string
	Member(sid SessionID) (domain.Member, bool)

	AddMember(sid SessionID, ms MemberSession)
	TryAddMember(sid SessionID, ms MemberSession, limit int) bool
	RemoveMember(sid SessionID) (MemberSession, bool)
	UpdateMember(sid SessionID, fn func(m *domain.Member)) (domain.Member, bool)
	Touch(sid SessionID)
	IdleMembers(limit time.Duration) []SessionID

	SetTyping(sid SessionID, typing bool) bool
	TypingNames() []string

	Append(e domain.LogEntry) (domain.LogEntry, PublishResult)
	Since(cursor uint64) []domain.LogEntry
	Snapshot() []domain.LogEntry
	LastID() uint64
	Wait(ctx context.Context, cursor uint64, timeout time.Duration) ([]domain.LogEntry, error)
	WaiterCount() int

	Send(sid SessionID, data Frame) error
	Broadcast(from SessionID, data Frame) PublishResult
	Reclaim() bool
}

type RoomInfo struct {
	Slug        domain.RoomSlug `json:"room"`
	MemberCount int             `json:"memberCount"`
	LastID      uint64          `json:"lastId"`
}

type RoomFactory interface {
	Resolve(raw string) (RoomService, error)
	GetOrCreate(slug domain.RoomSlug) RoomService
	Get(slug domain.RoomSlug) (RoomService, bool)
	All() []RoomService
	List() []RoomInfo
}
