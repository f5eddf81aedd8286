// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxClientIDLen = 64
	MaxUsernameLen = 20
	DefaultName    = "Guest"
	DefaultColor   = "#4a90d9"
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrClientIDInvalid = errors.New("client id invalid")
)

// ClientID is the stable per-device identity. It survives reconnects and keys
// rate limiting, topic cooldown and reconnection grace.
type ClientID string

type Gender string

const (
	GenderNone   Gender = ""
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

var colorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", ErrUsernameEmpty
	}
	if utf8.RuneCountInString(name) > MaxUsernameLen {
		return "", ErrUsernameTooLong
	}
	return name, nil
}

// NormalizeColor falls back to DefaultColor for anything that is not #rrggbb.
func NormalizeColor(raw string) string {
	c := strings.TrimSpace(raw)
	if !colorRe.MatchString(c) {
		return DefaultColor
	}
	return strings.ToLower(c)
}

func NormalizeGender(raw string) Gender {
	switch g := Gender(strings.ToLower(strings.TrimSpace(raw))); g {
	case GenderMale, GenderFemale, GenderOther:
		return g
	default:
		return GenderNone
	}
}

func NormalizeClientID(raw string) (ClientID, error) {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > MaxClientIDLen {
		return "", ErrClientIDInvalid
	}
	return ClientID(id), nil
}
