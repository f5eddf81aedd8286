package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatroom/internal/core"
	"github.com/dkeye/chatroom/internal/domain"
)

// catchUpHandler serves the pull side of delivery. Entries older than the
// retained window are gone; a stale cursor just gets what is left.
type catchUpHandler struct {
	rooms   core.RoomFactory
	timeout time.Duration
}

type catchUpResponse struct {
	Room    domain.RoomSlug   `json:"room"`
	Entries []domain.LogEntry `json:"entries"`
	LastID  uint64            `json:"lastId"`
}

func (h *catchUpHandler) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.rooms.List())
}

func (h *catchUpHandler) resolve(c *gin.Context) (core.RoomService, bool) {
	room, err := h.rooms.Resolve(c.Query("room"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrRoomNotFound.Error()})
		return nil, false
	}
	return room, true
}

func (h *catchUpHandler) snapshot(c *gin.Context) {
	room, ok := h.resolve(c)
	if !ok {
		return
	}
	entries := room.Snapshot()
	c.JSON(http.StatusOK, catchUpResponse{Room: room.Slug(), Entries: entries, LastID: lastID(entries, room)})
}

// poll answers at once when entries above since exist, otherwise parks until
// an append or the poll timeout. A timeout is an empty 200.
func (h *catchUpHandler) poll(c *gin.Context) {
	room, ok := h.resolve(c)
	if !ok {
		return
	}
	var since uint64
	if raw := c.Query("since"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be a non-negative integer"})
			return
		}
		since = v
	}

	entries, err := room.Wait(c.Request.Context(), since, h.timeout)
	if err != nil {
		if !errors.Is(err, c.Request.Context().Err()) {
			log.Error().Err(err).Str("module", "adapters.http").Str("room", string(room.Slug())).Msg("poll")
		}
		c.Abort()
		return
	}
	if entries == nil {
		entries = []domain.LogEntry{}
	}
	c.JSON(http.StatusOK, catchUpResponse{Room: room.Slug(), Entries: entries, LastID: lastID(entries, room)})
}

func lastID(entries []domain.LogEntry, room core.RoomService) uint64 {
	if n := len(entries); n > 0 {
		return entries[n-1].ID
	}
	return room.LastID()
}
