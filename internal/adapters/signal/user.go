package signal

import (
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleRename(s *wsSession, r changeNameRequest) {
	log.Info().Str("module", "signal").Str("sid", string(s.sid)).Str("name", r.Name).Msg("rename")
	ctl.reply(s, ctl.Orch.ChangeName(s.sid, r.Name))
}

func (ctl *SignalWSController) handleRecolor(s *wsSession, r changeColorRequest) {
	ctl.reply(s, ctl.Orch.ChangeColor(s.sid, r.Color))
}

func (ctl *SignalWSController) handleTyping(s *wsSession, r typingRequest) {
	ctl.reply(s, ctl.Orch.SetTyping(s.sid, r.Flag))
}
