package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/chatroom/internal/adapters/http"
	"github.com/dkeye/chatroom/internal/app"
	"github.com/dkeye/chatroom/internal/app/orch"
	"github.com/dkeye/chatroom/internal/config"
	"github.com/dkeye/chatroom/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	switch cfg.Mode {
	case "release":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	stores, err := store.Open(cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error().Err(err).Msg("close store")
		}
	}()

	clk := clock.New()

	moderator, err := app.NewModerator(cfg.Policy)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid moderation policy in config")
	}
	policies := app.NewPolicyService(moderator, stores.Policy)
	policies.Load(ctx)

	bans := app.NewBanList(clk, stores.Bans)
	bans.Load(ctx)

	topics := app.NewTopicPool(stores.Topics)
	topics.Load(ctx)

	backpressure, err := app.NewPolicy(cfg.Backpressure, cfg.MaxDroppedFrames)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid backpressure policy")
	}

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomManager(cfg.Rooms, cfg.LogWindow, clk),
		Policy:   backpressure,
		Admission: &app.Pipeline{
			MaxMembers:    cfg.MaxMembers,
			Bans:          bans,
			Actions:       app.NewActionLimiter(clk),
			Topics:        app.NewActionLimiter(clk),
			TopicCooldown: cfg.TopicCooldown,
			Moderator:     moderator,
		},
		Presence:        app.NewGraceTracker(clk, cfg.GraceWindow),
		Topics:          topics,
		Clock:           clk,
		InactivityLimit: cfg.InactivityLimit,
	}
	go o.RunSweeper(ctx, cfg.SweepPeriod)

	r := router.SetupRouter(ctx, cfg, o, policies)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("chat server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
