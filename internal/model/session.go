package model

import (
	"strconv"
	"time"
)

// SessionID uniquely identifies a session. Allocated monotonically by storage.
type SessionID int64

func (id SessionID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseSessionID parses the decimal form produced by SessionID.String
func ParseSessionID(s string) (SessionID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrSessionNotFound
	}
	return SessionID(n), nil
}

// SessionStatus represents the lifecycle phase of a session
type SessionStatus string

const (
	SessionStatusWaiting  SessionStatus = "WAITING"
	SessionStatusActive   SessionStatus = "ACTIVE"
	SessionStatusFinished SessionStatus = "FINISHED" // Terminal
	SessionStatusPaused   SessionStatus = "PAUSED"
)

// Role is one of the two fixed participant slots of a session
type Role string

const (
	RoleWhite Role = "WHITE" // Moves first
	RoleBlack Role = "BLACK"
)

// Valid reports whether r is one of the two participant roles
func (r Role) Valid() bool {
	return r == RoleWhite || r == RoleBlack
}

// Opponent returns the other participant role
func (r Role) Opponent() Role {
	if r == RoleWhite {
		return RoleBlack
	}
	return RoleWhite
}

// Session is one game instance between two participants
type Session struct {
	ID          SessionID
	White       PlayerID // first participant, the proposer
	Black       PlayerID // second participant, the invitee
	Status      SessionStatus
	CurrentTurn Role
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Revision is advanced by storage on every write; a write carrying a
	// stale revision is rejected
	Revision int64
}

// IsActive returns true if the session accepts moves
func (s *Session) IsActive() bool {
	return s.Status == SessionStatusActive
}

// PlayerFor returns the participant seated in the given role
func (s *Session) PlayerFor(role Role) PlayerID {
	switch role {
	case RoleWhite:
		return s.White
	case RoleBlack:
		return s.Black
	default:
		return ""
	}
}

// RoleOf returns the role held by the player, if they participate
func (s *Session) RoleOf(playerID PlayerID) (Role, bool) {
	switch playerID {
	case s.White:
		return RoleWhite, true
	case s.Black:
		return RoleBlack, true
	default:
		return "", false
	}
}

// HasParticipant returns true if the player is seated in this session
func (s *Session) HasParticipant(playerID PlayerID) bool {
	_, ok := s.RoleOf(playerID)
	return ok
}

// Participants returns both players in role order
func (s *Session) Participants() []PlayerID {
	return []PlayerID{s.White, s.Black}
}

// CurrentPlayer returns the player whose turn it is
func (s *Session) CurrentPlayer() PlayerID {
	return s.PlayerFor(s.CurrentTurn)
}
