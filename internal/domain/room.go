package domain

import (
	"errors"
	"regexp"
	"strings"
)

var ErrRoomNotFound = errors.New("room not found")

// RoomSlug is the normalized identifier of a room.
type RoomSlug string

var slugRe = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)

// NormalizeSlug lower-cases and trims raw input; it returns ErrRoomNotFound
// for anything that can never name a room.
func NormalizeSlug(raw string) (RoomSlug, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if !slugRe.MatchString(s) {
		return "", ErrRoomNotFound
	}
	return RoomSlug(s), nil
}
