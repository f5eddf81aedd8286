package signal

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatroom/internal/core"
)

// writePump owns every write to the socket. On cancel it flushes what is
// already queued (a force-leave, typically) and then closes.
func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			ctl.flush(c)
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := ctl.write(c, websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := ctl.write(c, websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping failed")
				return
			}
		}
	}
}

func (ctl *SignalWSController) write(c *WsSignalConn, kind int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(kind, data)
}

func (ctl *SignalWSController) flush(c *WsSignalConn) {
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := ctl.write(c, websocket.TextMessage, data); err != nil {
				return
			}
		default:
			_ = ctl.write(c, websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, s *wsSession) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(s.sid)).Msg("readPump closing")
		ctl.Orch.OnDisconnect(s.sid)
		cancel()
		s.conn.Close()
	}()

	ws := s.conn.conn
	if ctl.readLimit > 0 {
		ws.SetReadLimit(ctl.readLimit)
	}
	_ = ws.SetReadDeadline(time.Now().Add(ctl.pongWait()))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(ctl.pongWait()))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(s.sid)).Msg("readPump read error")
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(ctl.pongWait()))

		if !s.limiter.Allow() {
			ctl.sendError(s.conn, "too-many-frames")
			continue
		}
		ctl.handleSignal(s, data)
	}
}

func (ctl *SignalWSController) handleSignal(s *wsSession, data []byte) {
	req, err := parseRequest(data)
	if err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(s.sid)).Msg("bad frame")
		if errors.Is(err, ErrUnknownType) {
			ctl.sendError(s.conn, "unknown-type")
		} else {
			ctl.sendError(s.conn, "bad-payload")
		}
		return
	}

	switch r := req.(type) {
	case joinRequest:
		ctl.handleJoin(s, r)
	case leaveRequest:
		ctl.handleLeave(s)
	case resyncRequest:
		ctl.handleResync(s)
	case changeNameRequest:
		ctl.handleRename(s, r)
	case changeColorRequest:
		ctl.handleRecolor(s, r)
	case typingRequest:
		ctl.handleTyping(s, r)
	case sendMessageRequest:
		ctl.handleMessage(s, r)
	case rollRequest:
		ctl.handleRoll(s, r)
	case drawTopicRequest:
		ctl.handleTopic(s)
	case pingRequest:
		ctl.handlePing(s.conn)
	}
}

func (ctl *SignalWSController) send(c core.SignalConnection, typ string, payload any) {
	if err := c.TrySend(core.EncodeEvent(typ, payload)); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("type", typ).Msg("send failed")
	}
}
