package signal

// Rejections reach the sender from the orchestrator as rate-limit or
// message-rejected events; only hard errors are answered here.

func (ctl *SignalWSController) handleMessage(s *wsSession, r sendMessageRequest) {
	_, err := ctl.Orch.SendMessage(s.sid, r.Text)
	ctl.reply(s, err)
}

func (ctl *SignalWSController) handleRoll(s *wsSession, r rollRequest) {
	_, err := ctl.Orch.RollDice(s.sid, r.Sides)
	ctl.reply(s, err)
}

func (ctl *SignalWSController) handleTopic(s *wsSession) {
	_, err := ctl.Orch.DrawTopic(s.sid)
	ctl.reply(s, err)
}
