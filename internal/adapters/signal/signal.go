package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatroom/internal/app/orch"
	"github.com/dkeye/chatroom/internal/config"
	"github.com/dkeye/chatroom/internal/core"
)

// ClientTokenKey is the gin context key holding the cookie client token.
const ClientTokenKey = "client_token"

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
)

type SignalWSController struct {
	Orch *orch.Orchestrator

	readLimit  int64
	pingPeriod time.Duration
	frameRate  float64
	frameBurst int
}

func NewSignalWSController(o *orch.Orchestrator, cfg *config.Config) *SignalWSController {
	return &SignalWSController{
		Orch:       o,
		readLimit:  cfg.ReadLimit,
		pingPeriod: cfg.PingPeriod,
		frameRate:  cfg.FrameRate,
		frameBurst: cfg.FrameBurst,
	}
}

// pongWait is how long the read side waits for any frame, pongs included.
func (ctl *SignalWSController) pongWait() time.Duration {
	return ctl.pingPeriod * 10 / 9
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and starts the pumps. Each connection
// gets a fresh session id; the cookie token is the fallback client identity.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(uuid.NewString())
	ip := c.ClientIP()
	token := c.GetString(ClientTokenKey)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("ip", ip).Msg("new WS connection")

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, sendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.BindSignal(sid, conn, ip, cancel)

	s := &wsSession{
		sid:     sid,
		conn:    conn,
		token:   token,
		limiter: newFrameLimiter(ctl.frameRate, ctl.frameBurst),
	}
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, s)
}

// wsSession is the per-connection state the read pump carries.
type wsSession struct {
	sid     core.SessionID
	conn    *WsSignalConn
	token   string
	limiter *frameLimiter
}
