package signal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformed   = errors.New("malformed event")
	ErrUnknownType = errors.New("unknown event type")
)

// Client event types.
const (
	reqJoin        = "join"
	reqChangeName  = "change-name"
	reqChangeColor = "change-color"
	reqSendMessage = "send-message"
	reqTyping      = "typing"
	reqLeave       = "leave"
	reqRollDice    = "roll-dice"
	reqRoll1d6     = "roll-1d6"
	reqDrawTopic   = "draw-topic"
	reqResync      = "resync"
	reqPing        = "ping"
)

// request is one parsed client event. Exactly one concrete type per event.
type request interface {
	kind() string
}

type joinRequest struct {
	Room     string `json:"room"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	ClientID string `json:"clientId"`
	Gender   string `json:"gender"`
}

type changeNameRequest struct {
	Name string `json:"name"`
}

type changeColorRequest struct {
	Color string `json:"color"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type typingRequest struct {
	Flag bool
}

// rollRequest covers both dice events.
type rollRequest struct {
	Sides int
}

type (
	leaveRequest     struct{}
	drawTopicRequest struct{}
	resyncRequest    struct{}
	pingRequest      struct{}
)

func (joinRequest) kind() string        { return reqJoin }
func (changeNameRequest) kind() string  { return reqChangeName }
func (changeColorRequest) kind() string { return reqChangeColor }
func (sendMessageRequest) kind() string { return reqSendMessage }
func (typingRequest) kind() string      { return reqTyping }
func (r rollRequest) kind() string {
	if r.Sides == 6 {
		return reqRoll1d6
	}
	return reqRollDice
}
func (leaveRequest) kind() string     { return reqLeave }
func (drawTopicRequest) kind() string { return reqDrawTopic }
func (resyncRequest) kind() string    { return reqResync }
func (pingRequest) kind() string      { return reqPing }

// parseRequest validates the shape of a raw client frame and returns the
// matching request. Value rules (name length, slug format) stay with the
// orchestrator; only shape is checked here.
func parseRequest(data []byte) (request, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case reqJoin:
		var r joinRequest
		if err := strictDecode(data, &r); err != nil {
			return nil, err
		}
		if strings.TrimSpace(r.Room) == "" {
			return nil, fmt.Errorf("%w: join needs a room", ErrMalformed)
		}
		return r, nil
	case reqChangeName:
		var r changeNameRequest
		if err := strictDecode(data, &r); err != nil {
			return nil, err
		}
		return r, nil
	case reqChangeColor:
		var r changeColorRequest
		if err := strictDecode(data, &r); err != nil {
			return nil, err
		}
		return r, nil
	case reqSendMessage:
		var r sendMessageRequest
		if err := strictDecode(data, &r); err != nil {
			return nil, err
		}
		if strings.TrimSpace(r.Text) == "" {
			return nil, fmt.Errorf("%w: empty text", ErrMalformed)
		}
		return r, nil
	case reqTyping:
		var raw struct {
			Flag *bool `json:"flag"`
		}
		if err := strictDecode(data, &raw); err != nil {
			return nil, err
		}
		if raw.Flag == nil {
			return nil, fmt.Errorf("%w: typing needs a boolean flag", ErrMalformed)
		}
		return typingRequest{Flag: *raw.Flag}, nil
	case reqRollDice:
		return rollRequest{Sides: 100}, nil
	case reqRoll1d6:
		return rollRequest{Sides: 6}, nil
	case reqLeave:
		return leaveRequest{}, nil
	case reqDrawTopic:
		return drawTopicRequest{}, nil
	case reqResync:
		return resyncRequest{}, nil
	case reqPing:
		return pingRequest{}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

// strictDecode rejects fields of the wrong JSON type; unknown fields are
// ignored so "type" itself passes.
func strictDecode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
