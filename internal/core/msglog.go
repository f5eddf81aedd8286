package core

import "github.com/dkeye/chatroom/internal/domain"

// DefaultWindow is the number of entries a room retains. Older entries are
// unrecoverable; a cursor that predates the window only gets what remains.
const DefaultWindow = 50

// MessageLog is an append-only sliding window with a monotonic id sequence.
// The id counter is independent of retention and is never rewound.
// Not safe for concurrent use; the owning room serializes access.
type MessageLog struct {
	window  int
	nextID  uint64
	entries []domain.LogEntry
}

func NewMessageLog(window int) *MessageLog {
	if window <= 0 {
		window = DefaultWindow
	}
	return &MessageLog{
		window:  window,
		nextID:  1,
		entries: make([]domain.LogEntry, 0, window),
	}
}

// Append assigns the next id, stores the entry and returns the stored copy.
func (l *MessageLog) Append(e domain.LogEntry) domain.LogEntry {
	e.ID = l.nextID
	l.nextID++
	l.entries = append(l.entries, e)
	if over := len(l.entries) - l.window; over > 0 {
		// copy down so the backing array does not grow without bound
		n := copy(l.entries, l.entries[over:])
		clear(l.entries[n:])
		l.entries = l.entries[:n]
	}
	return e
}

// Since returns retained entries with id > cursor in ascending order.
func (l *MessageLog) Since(cursor uint64) []domain.LogEntry {
	// ids are dense within the window, so the start index is computable
	if len(l.entries) == 0 {
		return nil
	}
	first, last := l.entries[0].ID, l.entries[len(l.entries)-1].ID
	if cursor >= last {
		return nil
	}
	start := 0
	if cursor >= first {
		// cursor < last, so the offset fits the window
		start = int(cursor-first) + 1
	}
	out := make([]domain.LogEntry, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

func (l *MessageLog) Snapshot() []domain.LogEntry {
	out := make([]domain.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// LastID is the id of the most recently appended entry, or 0.
func (l *MessageLog) LastID() uint64 { return l.nextID - 1 }

func (l *MessageLog) Len() int { return len(l.entries) }

// Reset drops retained entries but keeps the id sequence.
func (l *MessageLog) Reset() {
	clear(l.entries)
	l.entries = l.entries[:0]
}
