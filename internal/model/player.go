package model

import (
	"regexp"
	"time"
)

// PlayerID is the opaque handle that identifies a player across the system
type PlayerID string

// identityPattern bounds what a player handle may look like
var identityPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// Valid reports whether the handle is non-empty and well-formed
func (id PlayerID) Valid() bool {
	return identityPattern.MatchString(string(id))
}

// Player is an entry in the player directory.
// Online state is not stored here; see the presence registry.
type Player struct {
	ID          PlayerID
	DisplayName string
	CreatedAt   time.Time
}
