package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatroom/internal/domain"
	"github.com/dkeye/chatroom/internal/store"
)

// PolicyService persists the moderation policy and publishes it to the Moderator.
type PolicyService struct {
	Moderator *Moderator
	rec       store.Record[domain.ModerationPolicy]
}

func NewPolicyService(m *Moderator, rec store.Record[domain.ModerationPolicy]) *PolicyService {
	return &PolicyService{Moderator: m, rec: rec}
}

// Load publishes the stored policy. A missing record, a malformed one or one
// whose patterns do not compile leaves the current policy in place.
func (s *PolicyService) Load(ctx context.Context) {
	p, err := s.rec.Load(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Str("module", "app.policy").Msg("load moderation policy, keeping defaults")
		}
		return
	}
	if err := s.Moderator.Swap(p); err != nil {
		log.Error().Err(err).Str("module", "app.policy").Msg("stored policy invalid, keeping defaults")
		return
	}
	log.Info().Str("module", "app.policy").Int("words", len(p.BannedWords)).
		Int("patterns", len(p.BannedPatterns)).Msg("moderation policy loaded")
}

func (s *PolicyService) Get() domain.ModerationPolicy {
	return s.Moderator.Policy()
}

// Replace validates p, swaps it in and persists it.
func (s *PolicyService) Replace(ctx context.Context, p domain.ModerationPolicy) error {
	if err := s.Moderator.Swap(p); err != nil {
		return fmt.Errorf("%w: %v", ErrPolicyInvalid, err)
	}
	if err := s.rec.Save(ctx, p); err != nil {
		log.Error().Err(err).Str("module", "app.policy").Msg("persist moderation policy")
		return fmt.Errorf("persist moderation policy: %w", err)
	}
	log.Info().Str("module", "app.policy").Msg("moderation policy replaced")
	return nil
}

var ErrPolicyInvalid = errors.New("invalid moderation policy")
