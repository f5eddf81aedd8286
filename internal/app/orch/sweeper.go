package orch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatroom/internal/core"
)

// SweepStats summarizes one sweep.
type SweepStats struct {
	Evicted   int
	Reclaimed int
}

// Sweep evicts members idle for longer than InactivityLimit and reclaims
// rooms that eviction left empty. It also prunes expired bookkeeping.
func (o *Orchestrator) Sweep(ctx context.Context) SweepStats {
	var st SweepStats
	for _, room := range o.Rooms.All() {
		idle := room.IdleMembers(o.InactivityLimit)
		for _, sid := range idle {
			o.sendTo(sid, core.EvForceLeave, map[string]any{"reason": core.LeaveInactive})
			o.removeMember(sid, leaveEvicted)
			st.Evicted++
		}
		if len(idle) > 0 && room.MemberCount() == 0 && room.Reclaim() {
			st.Reclaimed++
		}
	}

	o.Presence.Prune()
	o.Admission.Actions.Prune(o.InactivityLimit)
	o.Admission.Topics.Prune(o.InactivityLimit)
	if _, err := o.Admission.Bans.PruneExpired(ctx); err != nil {
		log.Error().Err(err).Str("module", "orch.sweeper").Msg("prune expired bans")
	}

	if st.Evicted > 0 {
		log.Info().Str("module", "orch.sweeper").Int("evicted", st.Evicted).Int("reclaimed", st.Reclaimed).Msg("sweep")
	}
	return st
}

// RunSweeper sweeps every period until ctx is done.
func (o *Orchestrator) RunSweeper(ctx context.Context, period time.Duration) {
	ticker := o.Clock.Ticker(period)
	defer ticker.Stop()
	log.Info().Str("module", "orch.sweeper").Dur("period", period).Msg("sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "orch.sweeper").Msg("sweeper stopped")
			return
		case <-ticker.C:
			o.Sweep(ctx)
		}
	}
}
