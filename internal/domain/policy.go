package domain

import "time"

// ModerationPolicy is replaced as a whole; never mutate a published value.
type ModerationPolicy struct {
	MaxLength      int      `json:"maxLength" mapstructure:"max_length"`
	MinIntervalMs  int64    `json:"minIntervalMs" mapstructure:"min_interval_ms"`
	MaxURLs        int      `json:"maxUrls" mapstructure:"max_urls"`
	BlockPII       bool     `json:"blockPii" mapstructure:"block_pii"`
	BannedWords    []string `json:"bannedWords" mapstructure:"banned_words"`
	BannedPatterns []string `json:"bannedPatterns" mapstructure:"banned_patterns"`
	BlockedDomains []string `json:"blockedDomains" mapstructure:"blocked_domains"`
}

func (p ModerationPolicy) MinInterval() time.Duration {
	return time.Duration(p.MinIntervalMs) * time.Millisecond
}

func DefaultPolicy() ModerationPolicy {
	return ModerationPolicy{
		MaxLength:     500,
		MinIntervalMs: 1000,
		MaxURLs:       2,
		BlockPII:      true,
	}
}
