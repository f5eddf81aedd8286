package domain

import "time"

type BanType string

const (
	BanClientID BanType = "clientId"
	BanIP       BanType = "ip"
)

type BanEntry struct {
	ID        string     `json:"id"`
	Type      BanType    `json:"type"`
	Value     string     `json:"value"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Active reports whether the ban still applies at now. A nil expiry is permanent.
func (b BanEntry) Active(now time.Time) bool {
	return b.ExpiresAt == nil || now.Before(*b.ExpiresAt)
}

// Matches reports whether the ban targets the given client or address.
func (b BanEntry) Matches(client ClientID, ip string) bool {
	switch b.Type {
	case BanClientID:
		return client != "" && b.Value == string(client)
	case BanIP:
		return ip != "" && b.Value == ip
	default:
		return false
	}
}
