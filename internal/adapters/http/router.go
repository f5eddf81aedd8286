package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatroom/internal/adapters/signal"
	"github.com/dkeye/chatroom/internal/app"
	"github.com/dkeye/chatroom/internal/app/orch"
	"github.com/dkeye/chatroom/internal/config"
)

const sessionName = "ChatSessions"

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, policies *app.PolicyService) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: clientTokenMaxAge, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	r.GET("/healthz", healthHandler(o))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ctrl := signal.NewSignalWSController(o, cfg)
	r.GET("/ws", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	limiter := NewIPRateLimiter(cfg.HTTPRate, cfg.HTTPBurst)
	go limiter.Run(ctx)

	cu := &catchUpHandler{rooms: o.Rooms, timeout: cfg.PollTimeout}
	limit := limiter.Middleware()
	r.GET("/snapshot", limit, cu.snapshot)
	r.GET("/poll", limit, cu.poll)
	api := r.Group("/api", limit)
	api.GET("/rooms", cu.listRooms)
	api.GET("/snapshot", cu.snapshot)
	api.GET("/poll", cu.poll)

	ad := &adminHandler{orch: o, policies: policies}
	admin := r.Group("/admin", AdminAuth(cfg.AdminSecret))
	admin.GET("/policy", ad.getPolicy)
	admin.PUT("/policy", ad.putPolicy)
	admin.GET("/bans", ad.listBans)
	admin.POST("/bans", ad.addBan)
	admin.DELETE("/bans/:id", ad.removeBan)
	admin.GET("/topics", ad.getTopics)
	admin.PUT("/topics", ad.putTopics)
	admin.GET("/online", ad.online)
	admin.POST("/rooms/:room/kick", ad.kick)

	return r
}
