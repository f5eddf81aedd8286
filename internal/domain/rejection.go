package domain

import "fmt"

type RejectCode string

const (
	CapacityExceeded   RejectCode = "capacity-exceeded"
	Banned             RejectCode = "banned"
	RateLimited        RejectCode = "rate-limited"
	ModerationRejected RejectCode = "moderation-rejected"
)

type ModerationReason string

const (
	ReasonTooLong       ModerationReason = "too-long"
	ReasonPersonalInfo  ModerationReason = "contains-personal-info"
	ReasonBannedTerm    ModerationReason = "contains-banned-term"
	ReasonTooManyURLs   ModerationReason = "too-many-urls"
	ReasonBlockedDomain ModerationReason = "blocked-domain"
)

// Rejection is the outcome of a failed admission check. It is a plain value
// delivered to the caller only.
type Rejection struct {
	Code   RejectCode       `json:"code"`
	Reason ModerationReason `json:"reason,omitempty"`
	WaitMs int64            `json:"waitMs,omitempty"`
	Ban    *BanEntry        `json:"-"`
}

func (r Rejection) String() string {
	switch r.Code {
	case RateLimited:
		return fmt.Sprintf("%s (wait %dms)", r.Code, r.WaitMs)
	case ModerationRejected:
		return fmt.Sprintf("%s: %s", r.Code, r.Reason)
	default:
		return string(r.Code)
	}
}
