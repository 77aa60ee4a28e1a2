package model

import (
	"fmt"
	"time"
)

// EventType identifies the type of event
type EventType string

const (
	// Invite events
	EventInviteProposed EventType = "invite-proposed"
	EventInviteDeclined EventType = "invite-declined"
	EventInviteFailed   EventType = "invite-failed"

	// Session events
	EventSessionStarted EventType = "session-started"
	EventSessionUpdated EventType = "session-updated"
	EventPlayerJoined   EventType = "player-joined"

	// Move events
	EventMoveApplied  EventType = "move-applied"
	EventMoveRejected EventType = "move-rejected"

	// Presence events
	EventPresenceChanged EventType = "presence-changed"
)

// Channel is a named fanout destination
type Channel string

// PresenceChannel carries online-set snapshots
const PresenceChannel Channel = "presence"

// PlayerChannel returns the channel targeted at a single player
func PlayerChannel(id PlayerID) Channel {
	return Channel(fmt.Sprintf("player:%s", id))
}

// SessionChannel returns the channel for everyone following a session
func SessionChannel(id SessionID) Channel {
	return Channel(fmt.Sprintf("session:%d", id))
}

// Event is the envelope for everything pushed to subscribers
type Event struct {
	Type      EventType `json:"type"`
	Channel   Channel   `json:"channel"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// InvitePayload is carried by invite-proposed and invite-declined
type InvitePayload struct {
	Type InviteType `json:"type"`
	From PlayerID   `json:"from"`
	To   PlayerID   `json:"to"`
}

// InviteFailedPayload tells the responder why an accept did not start a session
type InviteFailedPayload struct {
	From   PlayerID  `json:"from"`
	To     PlayerID  `json:"to"`
	Reason ErrorKind `json:"reason"`
}

// SessionPayload is a snapshot of a session, carried by session-started and session-updated
type SessionPayload struct {
	SessionID   SessionID     `json:"session_id"`
	White       PlayerID      `json:"white"`
	Black       PlayerID      `json:"black"`
	Status      SessionStatus `json:"status"`
	CurrentTurn Role          `json:"current_turn"`
	YourRole    Role          `json:"your_role,omitempty"`
}

// NewSessionPayload builds a snapshot of the session
func NewSessionPayload(s *Session) SessionPayload {
	return SessionPayload{
		SessionID:   s.ID,
		White:       s.White,
		Black:       s.Black,
		Status:      s.Status,
		CurrentTurn: s.CurrentTurn,
	}
}

// MovePayload is carried by move-applied
type MovePayload struct {
	SessionID SessionID `json:"session_id"`
	Number    int       `json:"number"`
	From      Square    `json:"from"`
	To        Square    `json:"to"`
	Piece     string    `json:"piece"`
	Role      Role      `json:"role"`
	Notation  string    `json:"notation"`
	NextTurn  Role      `json:"next_turn"`
}

// NewMovePayload builds the payload for an accepted move
func NewMovePayload(m *Move) MovePayload {
	return MovePayload{
		SessionID: m.SessionID,
		Number:    m.Number,
		From:      m.From,
		To:        m.To,
		Piece:     m.Piece,
		Role:      m.Role,
		Notation:  m.Notation,
		NextTurn:  m.Role.Opponent(),
	}
}

// MoveRejectedPayload is sent to the submitter of a rejected move
type MoveRejectedPayload struct {
	SessionID SessionID `json:"session_id"`
	Reason    ErrorKind `json:"reason"`
	Message   string    `json:"message"`
}

// PresencePayload is a full snapshot of the online set after one change.
// Version increases with every change so stale snapshots can be discarded.
type PresencePayload struct {
	Online   []PlayerID `json:"online"`
	Player   PlayerID   `json:"player"`
	IsOnline bool       `json:"is_online"`
	Version  uint64     `json:"version"`
}

// PlayerJoinedPayload announces a participant following a session stream
type PlayerJoinedPayload struct {
	SessionID SessionID `json:"session_id"`
	PlayerID  PlayerID  `json:"player_id"`
	Role      Role      `json:"role"`
}
