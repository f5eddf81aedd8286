package app

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatroom/internal/core"
	"github.com/dkeye/chatroom/internal/domain"
)

type Action int

const (
	ActionJoin Action = iota
	ActionMessage
	ActionDice
	ActionTopic
)

func (a Action) String() string {
	switch a {
	case ActionJoin:
		return "join"
	case ActionMessage:
		return "message"
	case ActionDice:
		return "dice"
	case ActionTopic:
		return "topic"
	default:
		return "unknown"
	}
}

type AdmissionRequest struct {
	Action Action
	Room   core.RoomService
	Client domain.ClientID
	IP     string
	Text   string
}

// Pipeline gates every room-mutating action: capacity, ban, rate limit,
// moderation. A rejection has no side effects.
type Pipeline struct {
	MaxMembers    int
	Bans          *BanList
	Actions       *ActionLimiter
	Topics        *ActionLimiter
	TopicCooldown time.Duration
	Moderator     *Moderator
}

func (p *Pipeline) Check(req AdmissionRequest) (domain.Rejection, bool) {
	rej, ok := p.check(req)
	if !ok {
		log.Debug().Str("module", "app.admission").Str("action", req.Action.String()).
			Str("room", string(req.Room.Slug())).Str("client", string(req.Client)).
			Str("rejection", rej.String()).Msg("rejected")
	}
	return rej, ok
}

func (p *Pipeline) check(req AdmissionRequest) (domain.Rejection, bool) {
	slug := req.Room.Slug()
	switch req.Action {
	case ActionJoin:
		if req.Room.MemberCount() >= p.MaxMembers {
			return domain.Rejection{Code: domain.CapacityExceeded}, false
		}
		if ban, ok := p.Bans.Match(req.Client, req.IP); ok {
			return domain.Rejection{Code: domain.Banned, Ban: &ban}, false
		}
		return domain.Rejection{}, true
	case ActionMessage:
		interval := p.Moderator.Policy().MinInterval()
		return p.Actions.Admit(req.Client, slug, interval, func() (domain.Rejection, bool) {
			if reason, ok := p.Moderator.Check(req.Text); !ok {
				return domain.Rejection{Code: domain.ModerationRejected, Reason: reason}, false
			}
			return domain.Rejection{}, true
		})
	case ActionDice:
		return p.Actions.Admit(req.Client, slug, p.Moderator.Policy().MinInterval(), nil)
	case ActionTopic:
		return p.Topics.Admit(req.Client, slug, p.TopicCooldown, nil)
	default:
		return domain.Rejection{}, true
	}
}
