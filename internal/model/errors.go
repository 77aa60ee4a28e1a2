package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound  = errors.New("player not found")
	ErrUnknownPlayer   = errors.New("unknown player")
	ErrInvalidIdentity = errors.New("invalid player identity")

	// Session errors
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionNotActive  = errors.New("session is not active")
	ErrNoActiveSession   = errors.New("player has no active session")
	ErrNotParticipant    = errors.New("player is not a participant in this session")
	ErrInvalidTransition = errors.New("invalid session status transition")

	// Move errors
	ErrTurnViolation = errors.New("not this role's turn")
	ErrMalformedMove = errors.New("malformed move")

	// Invite errors
	ErrInvalidInvite = errors.New("invalid invite")

	// Notification errors
	ErrDeliveryFailure = errors.New("event delivery failed")
)

// ErrorKind is the machine-readable category of an error, shared by the
// HTTP API and the websocket transport
type ErrorKind string

const (
	KindUnknownPlayer     ErrorKind = "UNKNOWN_PLAYER"
	KindPlayerNotFound    ErrorKind = "PLAYER_NOT_FOUND"
	KindInvalidIdentity   ErrorKind = "INVALID_IDENTITY"
	KindSessionNotFound   ErrorKind = "SESSION_NOT_FOUND"
	KindSessionNotActive  ErrorKind = "SESSION_NOT_ACTIVE"
	KindNoActiveSession   ErrorKind = "NO_ACTIVE_SESSION"
	KindNotParticipant    ErrorKind = "NOT_PARTICIPANT"
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"
	KindTurnViolation     ErrorKind = "TURN_VIOLATION"
	KindMalformedMove     ErrorKind = "MALFORMED_MOVE"
	KindInvalidInvite     ErrorKind = "INVALID_INVITE"
	KindDeliveryFailure   ErrorKind = "DELIVERY_FAILURE"
	KindInternal          ErrorKind = "INTERNAL_ERROR"
)

var errorKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrUnknownPlayer, KindUnknownPlayer},
	{ErrPlayerNotFound, KindPlayerNotFound},
	{ErrInvalidIdentity, KindInvalidIdentity},
	{ErrSessionNotFound, KindSessionNotFound},
	{ErrSessionNotActive, KindSessionNotActive},
	{ErrNoActiveSession, KindNoActiveSession},
	{ErrNotParticipant, KindNotParticipant},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrTurnViolation, KindTurnViolation},
	{ErrMalformedMove, KindMalformedMove},
	{ErrInvalidInvite, KindInvalidInvite},
	{ErrDeliveryFailure, KindDeliveryFailure},
}

// KindOf maps an error (possibly wrapped) to its kind.
// Errors not raised by this package map to KindInternal.
func KindOf(err error) ErrorKind {
	for _, ek := range errorKinds {
		if errors.Is(err, ek.err) {
			return ek.kind
		}
	}
	return KindInternal
}
