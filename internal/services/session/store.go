package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/duelgame/internal/dependencies/clock"
	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/storage"
)

// maxTransactAttempts bounds how often Transact re-reads a session whose
// write lost to another server instance
const maxTransactAttempts = 5

// Store owns session lifecycle and the per-session serialization of moves.
// Within one process a per-session mutex orders transactions; across
// processes the storage revision check rejects the loser, which re-reads.
type Store struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger

	// locks holds a mutex only while some transaction on that session is
	// running or waiting
	mu    sync.Mutex
	locks map[model.SessionID]*sessionLock
}

type sessionLock struct {
	sync.Mutex
	refs int
}

// New creates a new session Store
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Store {
	return &Store{
		storage: storage,
		clock:   clock,
		logger:  logger.With(slog.String("component", "sessions")),
		locks:   make(map[model.SessionID]*sessionLock),
	}
}

// acquire locks the session's mutex, creating it if nobody holds one
func (s *Store) acquire(id model.SessionID) *sessionLock {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return l
}

// release unlocks and drops the mutex once no one else is waiting on it
func (s *Store) release(id model.SessionID, l *sessionLock) {
	l.Unlock()

	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, id)
	}
	s.mu.Unlock()
}

// Create starts an ACTIVE session with first as WHITE to move
func (s *Store) Create(ctx context.Context, first, second model.PlayerID) (*model.Session, error) {
	id, err := s.storage.NextSessionID(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate session id: %w", err)
	}

	now := s.clock.Now()
	session := &model.Session{
		ID:          id,
		White:       first,
		Black:       second,
		Status:      model.SessionStatusActive,
		CurrentTurn: model.RoleWhite,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.storage.SaveSession(ctx, session); err != nil {
		s.logger.Error("failed to save session",
			slog.Int64("session_id", int64(id)),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.Info("session created",
		slog.Int64("session_id", int64(id)),
		slog.String("white", string(first)),
		slog.String("black", string(second)))

	return session, nil
}

// Get retrieves a session by id
func (s *Store) Get(ctx context.Context, id model.SessionID) (*model.Session, error) {
	return s.storage.GetSession(ctx, id)
}

// FindActiveFor returns the player's lowest-id ACTIVE session
func (s *Store) FindActiveFor(ctx context.Context, playerID model.PlayerID) (*model.Session, error) {
	return s.storage.FindActiveSessionByPlayer(ctx, playerID)
}

// ListFor returns every session the player sits in, ascending by id
func (s *Store) ListFor(ctx context.Context, playerID model.PlayerID) ([]*model.Session, error) {
	return s.storage.ListSessionsByPlayer(ctx, playerID)
}

// ListMoves returns the session's moves in the order they were accepted
func (s *Store) ListMoves(ctx context.Context, id model.SessionID) ([]*model.Move, error) {
	if _, err := s.storage.GetSession(ctx, id); err != nil {
		return nil, err
	}
	return s.storage.ListMoves(ctx, id)
}

// AppendMove records a move that was built outside a transaction
func (s *Store) AppendMove(ctx context.Context, id model.SessionID, move *model.Move) (*model.Session, error) {
	var updated *model.Session
	err := s.Transact(ctx, id, func(tx *Tx) error {
		if err := tx.AppendMove(move); err != nil {
			return err
		}
		updated = tx.Session()
		return nil
	})
	return updated, err
}

// Transact runs fn while holding the session's lock. The Tx sees the
// latest stored session, so checks made inside fn cannot be invalidated
// by a concurrent move on the same session. If another instance wrote the
// session first, fn runs again against the fresh copy; fn must not have
// side effects beyond the Tx.
func (s *Store) Transact(ctx context.Context, id model.SessionID, fn func(tx *Tx) error) error {
	l := s.acquire(id)
	defer s.release(id, l)

	var err error
	for attempt := 1; attempt <= maxTransactAttempts; attempt++ {
		var session *model.Session
		session, err = s.storage.GetSession(ctx, id)
		if err != nil {
			return err
		}

		err = fn(&Tx{ctx: ctx, store: s, session: session, moveCount: -1})
		if !errors.Is(err, storage.ErrStaleSession) {
			return err
		}
		s.logger.Debug("session changed concurrently, retrying",
			slog.Int64("session_id", int64(id)),
			slog.Int("attempt", attempt))
	}
	return err
}

// Finish ends a session for good; allowed from ACTIVE or PAUSED
func (s *Store) Finish(ctx context.Context, id model.SessionID) (*model.Session, error) {
	return s.transition(ctx, id, model.SessionStatusFinished, model.SessionStatusActive, model.SessionStatusPaused)
}

// Pause suspends an ACTIVE session
func (s *Store) Pause(ctx context.Context, id model.SessionID) (*model.Session, error) {
	return s.transition(ctx, id, model.SessionStatusPaused, model.SessionStatusActive)
}

// Resume reactivates a PAUSED session
func (s *Store) Resume(ctx context.Context, id model.SessionID) (*model.Session, error) {
	return s.transition(ctx, id, model.SessionStatusActive, model.SessionStatusPaused)
}

func (s *Store) transition(ctx context.Context, id model.SessionID, to model.SessionStatus, from ...model.SessionStatus) (*model.Session, error) {
	var updated *model.Session
	err := s.Transact(ctx, id, func(tx *Tx) error {
		session := tx.session
		if session.Status == model.SessionStatusFinished {
			return model.ErrSessionNotActive
		}
		allowed := false
		for _, f := range from {
			if session.Status == f {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("%w: %s to %s", model.ErrInvalidTransition, session.Status, to)
		}

		previous := session.Status
		session.Status = to
		session.UpdatedAt = s.clock.Now()
		if err := s.storage.SaveSession(ctx, session); err != nil {
			return err
		}

		s.logger.Info("session status changed",
			slog.Int64("session_id", int64(id)),
			slog.String("from", string(previous)),
			slog.String("to", string(to)))
		updated = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
