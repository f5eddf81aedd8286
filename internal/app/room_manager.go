package app

import (
	"sort"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/dkeye/chatroom/internal/core"
	"github.com/dkeye/chatroom/internal/domain"
)

// RoomManagerImpl owns one RoomService per slug, created lazily. Rooms are
// never destroyed; an empty room is idle until reclaimed by the sweeper.
type RoomManagerImpl struct {
	mu      sync.RWMutex
	rooms   map[domain.RoomSlug]core.RoomService
	allowed map[domain.RoomSlug]struct{}
	window  int
	clk     clock.Clock
}

// NewRoomManager restricts rooms to allowed; an empty list accepts any valid slug.
func NewRoomManager(allowed []string, window int, clk clock.Clock) *RoomManagerImpl {
	f := &RoomManagerImpl{
		rooms:  make(map[domain.RoomSlug]core.RoomService),
		window: window,
		clk:    clk,
	}
	for _, raw := range allowed {
		if slug, err := domain.NormalizeSlug(raw); err == nil {
			if f.allowed == nil {
				f.allowed = make(map[domain.RoomSlug]struct{})
			}
			f.allowed[slug] = struct{}{}
		}
	}
	return f
}

// Resolve normalizes raw and returns the room, or domain.ErrRoomNotFound.
func (f *RoomManagerImpl) Resolve(raw string) (core.RoomService, error) {
	slug, err := domain.NormalizeSlug(raw)
	if err != nil {
		return nil, err
	}
	if f.allowed != nil {
		if _, ok := f.allowed[slug]; !ok {
			return nil, domain.ErrRoomNotFound
		}
	}
	return f.GetOrCreate(slug), nil
}

func (f *RoomManagerImpl) GetOrCreate(slug domain.RoomSlug) core.RoomService {
	f.mu.RLock()
	room, ok := f.rooms[slug]
	f.mu.RUnlock()
	if ok {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok = f.rooms[slug]; ok {
		return room
	}
	room = core.NewRoomService(slug, f.window, f.clk)
	f.rooms[slug] = room
	return room
}

func (f *RoomManagerImpl) Get(slug domain.RoomSlug) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[slug]
	return room, ok
}

func (f *RoomManagerImpl) All() []core.RoomService {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.RoomService, 0, len(f.rooms))
	for _, r := range f.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug() < out[j].Slug() })
	return out
}

func (f *RoomManagerImpl) List() []core.RoomInfo {
	rooms := f.All()
	out := make([]core.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, core.RoomInfo{Slug: r.Slug(), MemberCount: r.MemberCount(), LastID: r.LastID()})
	}
	return out
}
