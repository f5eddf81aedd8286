package signal

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatroom/internal/app/orch"
	"github.com/dkeye/chatroom/internal/core"
	"github.com/dkeye/chatroom/internal/domain"
)

func (ctl *SignalWSController) handlePing(c core.SignalConnection) {
	ctl.send(c, core.EvPong, nil)
}

func (ctl *SignalWSController) sendError(c core.SignalConnection, code string) {
	ctl.send(c, core.EvError, map[string]string{"error": code})
}

// reply turns an orchestrator error into an error event; nil is silent.
func (ctl *SignalWSController) reply(s *wsSession, err error) {
	if err == nil {
		return
	}
	code := errorCode(err)
	log.Debug().Err(err).Str("module", "signal").Str("sid", string(s.sid)).Str("code", code).Msg("request failed")
	ctl.sendError(s.conn, code)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return "room-not-found"
	case errors.Is(err, orch.ErrNotJoined):
		return "not-joined"
	case errors.Is(err, orch.ErrNotBound):
		return "not-connected"
	case errors.Is(err, orch.ErrNoTopics):
		return "no-topics"
	case errors.Is(err, orch.ErrBadPayload):
		return "bad-payload"
	default:
		return "internal"
	}
}
