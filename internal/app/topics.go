package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatroom/internal/store"
)

var defaultTopics = []string{
	"What did you have for breakfast?",
	"Best movie you saw this year?",
	"If you could live anywhere, where?",
	"What are you listening to right now?",
}

// TopicPool is the list draw-topic picks from.
type TopicPool struct {
	rec    store.Record[[]string]
	wmu    sync.Mutex
	topics atomic.Pointer[[]string]
	pick   func(n int) int
}

func NewTopicPool(rec store.Record[[]string]) *TopicPool {
	p := &TopicPool{rec: rec, pick: rand.IntN}
	seed := append([]string(nil), defaultTopics...)
	p.topics.Store(&seed)
	return p
}

// Load reads the persisted pool; missing or malformed keeps the built-in topics.
func (p *TopicPool) Load(ctx context.Context) {
	topics, err := p.rec.Load(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Str("module", "app.topics").Msg("load topic pool, using defaults")
		}
		return
	}
	topics = cleanTopics(topics)
	p.topics.Store(&topics)
	log.Info().Str("module", "app.topics").Int("count", len(topics)).Msg("topic pool loaded")
}

func (p *TopicPool) Draw() (string, bool) {
	topics := *p.topics.Load()
	if len(topics) == 0 {
		return "", false
	}
	return topics[p.pick(len(topics))], true
}

func (p *TopicPool) Len() int { return len(*p.topics.Load()) }

func (p *TopicPool) List() []string {
	return append([]string(nil), *p.topics.Load()...)
}

func (p *TopicPool) Replace(ctx context.Context, topics []string) error {
	next := cleanTopics(topics)
	p.wmu.Lock()
	defer p.wmu.Unlock()
	p.topics.Store(&next)
	if err := p.rec.Save(ctx, next); err != nil {
		log.Error().Err(err).Str("module", "app.topics").Msg("persist topic pool")
		return fmt.Errorf("persist topic pool: %w", err)
	}
	return nil
}

func cleanTopics(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
