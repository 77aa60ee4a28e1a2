package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mcoot/duelgame/internal/model"
)

// ErrStaleSession is returned when a session write carries a revision that
// no longer matches the stored one, or a move number that does not follow
// the stored history. Callers re-read and retry.
var ErrStaleSession = errors.New("session changed since it was read")

// Storage defines the interface for data persistence.
// Implementations return copies; callers may mutate what they get back.
type Storage interface {
	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)

	// Session operations
	NextSessionID(ctx context.Context) (model.SessionID, error)
	// SaveSession writes the session if its Revision still matches the stored
	// one (or it is new) and advances session.Revision on success
	SaveSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id model.SessionID) (*model.Session, error)
	// FindActiveSessionByPlayer returns the lowest-id ACTIVE session the player sits in
	FindActiveSessionByPlayer(ctx context.Context, playerID model.PlayerID) (*model.Session, error)
	// ListSessionsByPlayer returns every session the player sits in, ascending by id
	ListSessionsByPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.Session, error)

	// Move operations

	// SaveMove appends the move and saves the session in one atomic step.
	// The session must exist at the same Revision and the move number must be
	// one past the stored count, otherwise ErrStaleSession.
	SaveMove(ctx context.Context, session *model.Session, move *model.Move) error
	ListMoves(ctx context.Context, sessionID model.SessionID) ([]*model.Move, error)
	CountMoves(ctx context.Context, sessionID model.SessionID) (int, error)

	// Presence operations

	// SetPresence updates the player's flag and returns the resulting online
	// set (sorted) together with the new presence version
	SetPresence(ctx context.Context, playerID model.PlayerID, online bool) ([]model.PlayerID, uint64, error)
	ListPresence(ctx context.Context) ([]model.PlayerID, error)
	IsPresent(ctx context.Context, playerID model.PlayerID) (bool, error)

	// Token revocation

	// RevokeToken remembers the token id until expiresAt
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
	// PurgeRevokedTokens forgets revocations that expired before the given time
	PurgeRevokedTokens(ctx context.Context, before time.Time) (int, error)
}
