package core

import (
	"cmp"
	"context"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dkeye/chatroom/internal/domain"
	"github.com/rs/zerolog/log"
)

type roomMember struct {
	sess       MemberSession
	seq        uint64
	lastActive time.Time
}

// waiter is a parked catch-up request.
type waiter struct {
	cursor uint64
	ch     chan []domain.LogEntry
}

// roomImpl is a threadsafe in-memory room.
// All mutation happens under mu, so append order is id order is delivery order.
// It never closes adapter-owned resources.
type roomImpl struct {
	slug    domain.RoomSlug
	clk     clock.Clock
	mu      sync.Mutex
	seq     uint64
	bySID   map[SessionID]*roomMember
	typing  map[SessionID]struct{}
	log     *MessageLog
	waiters map[*waiter]struct{}
}

func NewRoomService(slug domain.RoomSlug, window int, clk clock.Clock) RoomService {
	if clk == nil {
		clk = clock.New()
	}
	return &roomImpl{
		slug:    slug,
		clk:     clk,
		bySID:   make(map[SessionID]*roomMember),
		typing:  make(map[SessionID]struct{}),
		log:     NewMessageLog(window),
		waiters: make(map[*waiter]struct{}),
	}
}

func (r *roomImpl) Slug() domain.RoomSlug { return r.slug }

func (r *roomImpl) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bySID)
}

func (r *roomImpl) AddMember(sid SessionID, ms MemberSession) {
	r.TryAddMember(sid, ms, math.MaxInt)
}

// TryAddMember adds ms unless the room already holds limit members. The count
// and the insert share one critical section.
func (r *roomImpl) TryAddMember(sid SessionID, ms MemberSession, limit int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySID[sid]; !ok && len(r.bySID) >= limit {
		return false
	}
	r.seq++
	r.bySID[sid] = &roomMember{sess: ms, seq: r.seq, lastActive: r.clk.Now()}
	log.Info().Str("module", "core.room").Str("room", string(r.slug)).Str("sid", string(sid)).
		Str("client", string(ms.Meta().Client)).Msg("member added")
	return true
}

func (r *roomImpl) RemoveMember(sid SessionID) (MemberSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.bySID[sid]
	if !ok {
		return nil, false
	}
	delete(r.bySID, sid)
	delete(r.typing, sid)
	log.Info().Str("module", "core.room").Str("room", string(r.slug)).Str("sid", string(sid)).Msg("member removed")
	return m.sess, true
}

func (r *roomImpl) Member(sid SessionID) (domain.Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.bySID[sid]
	if !ok {
		return domain.Member{}, false
	}
	return *m.sess.Meta(), true
}

func (r *roomImpl) UpdateMember(sid SessionID, fn func(m *domain.Member)) (domain.Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.bySID[sid]
	if !ok {
		return domain.Member{}, false
	}
	fn(m.sess.Meta())
	return *m.sess.Meta(), true
}

func (r *roomImpl) Touch(sid SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.bySID[sid]; ok {
		m.lastActive = r.clk.Now()
	}
}

// IdleMembers lists members whose last activity is older than limit.
func (r *roomImpl) IdleMembers(limit time.Duration) []SessionID {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clk.Now()
	var out []SessionID
	for sid, m := range r.bySID {
		if now.Sub(m.lastActive) > limit {
			out = append(out, sid)
		}
	}
	return out
}

func (r *roomImpl) sortedLocked() []*roomMember {
	ms := make([]*roomMember, 0, len(r.bySID))
	for _, m := range r.bySID {
		ms = append(ms, m)
	}
	slices.SortFunc(ms, func(a, b *roomMember) int { return cmp.Compare(a.seq, b.seq) })
	return ms
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms := r.sortedLocked()
	out := make([]MemberDTO, 0, len(ms))
	for _, m := range ms {
		meta := m.sess.Meta()
		out = append(out, MemberDTO{
			SessionID:  m.sess.ID(),
			Name:       meta.Name,
			Color:      meta.Color,
			Gender:     meta.Gender,
			ClientID:   meta.Client,
			LastActive: m.lastActive,
		})
	}
	return out
}

func (r *roomImpl) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms := r.sortedLocked()
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.sess.Meta().Name)
	}
	return out
}

// SetTyping reports whether the typing set changed.
func (r *roomImpl) SetTyping(sid SessionID, typing bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySID[sid]; !ok {
		return false
	}
	_, was := r.typing[sid]
	if typing == was {
		return false
	}
	if typing {
		r.typing[sid] = struct{}{}
	} else {
		delete(r.typing, sid)
	}
	return true
}

func (r *roomImpl) TypingNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.typing))
	for _, m := range r.sortedLocked() {
		if _, ok := r.typing[m.sess.ID()]; ok {
			out = append(out, m.sess.Meta().Name)
		}
	}
	return out
}

// Append stores e under the next id, wakes parked catch-up requests whose
// cursor is below it and pushes it to every live member, sender included.
func (r *roomImpl) Append(e domain.LogEntry) (domain.LogEntry, PublishResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.Time.IsZero() {
		e.Time = r.clk.Now()
	}
	stored := r.log.Append(e)
	r.wakeLocked(stored.ID)
	res := r.broadcastLocked("", EncodeEntry(stored))
	log.Debug().Str("module", "core.room").Str("room", string(r.slug)).Uint64("id", stored.ID).
		Str("kind", string(stored.Kind)).Int("sent_to", res.SendTo).Msg("appended")
	return stored, res
}

func (r *roomImpl) wakeLocked(id uint64) {
	// snapshot before mutating the waiter set
	ready := make([]*waiter, 0, len(r.waiters))
	for w := range r.waiters {
		if w.cursor < id {
			ready = append(ready, w)
		}
	}
	for _, w := range ready {
		delete(r.waiters, w)
		w.ch <- r.log.Since(w.cursor)
	}
}

func (r *roomImpl) Since(cursor uint64) []domain.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.log.Since(cursor)
}

func (r *roomImpl) Snapshot() []domain.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.log.Snapshot()
}

func (r *roomImpl) LastID() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.log.LastID()
}

// Wait returns entries after cursor immediately if any exist; otherwise it
// parks until an append, the timeout (empty result) or ctx cancellation.
// The waiter is always removed before Wait returns.
func (r *roomImpl) Wait(ctx context.Context, cursor uint64, timeout time.Duration) ([]domain.LogEntry, error) {
	r.mu.Lock()
	if es := r.log.Since(cursor); len(es) > 0 {
		r.mu.Unlock()
		return es, nil
	}
	// the deadline exists before the waiter becomes visible
	timer := r.clk.Timer(timeout)
	defer timer.Stop()
	w := &waiter{cursor: cursor, ch: make(chan []domain.LogEntry, 1)}
	r.waiters[w] = struct{}{}
	r.mu.Unlock()

	var err error
	select {
	case es := <-w.ch:
		return es, nil
	case <-timer.C:
	case <-ctx.Done():
		err = ctx.Err()
	}

	r.mu.Lock()
	delete(r.waiters, w)
	r.mu.Unlock()

	// an append may have won the race against the timer
	select {
	case es := <-w.ch:
		return es, nil
	default:
	}
	return nil, err
}

func (r *roomImpl) WaiterCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}

func (r *roomImpl) Send(sid SessionID, data Frame) error {
	r.mu.Lock()
	m, ok := r.bySID[sid]
	r.mu.Unlock()
	if !ok {
		return ErrConnClosed
	}
	return m.sess.Signal().TrySend(data)
}

func (r *roomImpl) Broadcast(from SessionID, data Frame) PublishResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.broadcastLocked(from, data)
}

func (r *roomImpl) broadcastLocked(from SessionID, data Frame) PublishResult {
	res := PublishResult{}
	for sid, m := range r.bySID {
		if sid == from {
			continue
		}
		if err := m.sess.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, m.sess)
			continue
		}
		res.SendTo++
	}
	return res
}

// Reclaim clears the log and typing set of an empty room. The id sequence
// survives so cursors held by clients stay meaningful.
func (r *roomImpl) Reclaim() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.bySID) > 0 {
		return false
	}
	r.log.Reset()
	clear(r.typing)
	log.Info().Str("module", "core.room").Str("room", string(r.slug)).Msg("idle room reclaimed")
	return true
}
