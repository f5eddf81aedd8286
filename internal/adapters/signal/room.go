package signal

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatroom/internal/app/orch"
)

// handleJoin falls back to the cookie token when the payload has no client id.
func (ctl *SignalWSController) handleJoin(s *wsSession, r joinRequest) {
	client := strings.TrimSpace(r.ClientID)
	if client == "" {
		client = s.token
	}
	log.Info().Str("module", "signal").Str("sid", string(s.sid)).Str("room", r.Room).Msg("join")

	_, err := ctl.Orch.Join(s.sid, orch.JoinRequest{
		Room:     r.Room,
		Name:     r.Name,
		Color:    r.Color,
		ClientID: client,
		Gender:   r.Gender,
	})
	ctl.reply(s, err)
}

// handleLeave leaves the current room; the connection stays open.
func (ctl *SignalWSController) handleLeave(s *wsSession) {
	log.Info().Str("module", "signal").Str("sid", string(s.sid)).Msg("leave")
	ctl.reply(s, ctl.Orch.Leave(s.sid))
}

func (ctl *SignalWSController) handleResync(s *wsSession) {
	ctl.reply(s, ctl.Orch.Resync(s.sid))
}
