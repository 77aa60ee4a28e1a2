package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players        map[model.PlayerID]model.Player
	sessions       map[model.SessionID]model.Session
	moves          map[model.SessionID][]model.Move
	playerSessions map[model.PlayerID][]model.SessionID
	lastSessionID  model.SessionID

	online          map[model.PlayerID]struct{}
	presenceVersion uint64
	revoked         map[string]time.Time
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:        make(map[model.PlayerID]model.Player),
		sessions:       make(map[model.SessionID]model.Session),
		moves:          make(map[model.SessionID][]model.Move),
		playerSessions: make(map[model.PlayerID][]model.SessionID),
		online:         make(map[model.PlayerID]struct{}),
		revoked:        make(map[string]time.Time),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[player.ID] = *player
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return &player, nil
}

// Session operations

func (s *Storage) NextSessionID(ctx context.Context) (model.SessionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSessionID++
	return s.lastSessionID, nil
}

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stored, ok := s.sessions[session.ID]; ok && stored.Revision != session.Revision {
		return storage.ErrStaleSession
	}
	s.saveSessionLocked(session)
	return nil
}

// saveSessionLocked advances the revision, stores the session and indexes it
// under both participants. Caller must hold the write lock and have checked
// the revision.
func (s *Storage) saveSessionLocked(session *model.Session) {
	_, existed := s.sessions[session.ID]
	session.Revision++
	s.sessions[session.ID] = *session
	if existed {
		return
	}
	for _, p := range session.Participants() {
		ids := s.playerSessions[p]
		i := sort.Search(len(ids), func(i int) bool { return ids[i] >= session.ID })
		if i < len(ids) && ids[i] == session.ID {
			continue
		}
		ids = append(ids, 0)
		copy(ids[i+1:], ids[i:])
		ids[i] = session.ID
		s.playerSessions[p] = ids
	}
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return &session, nil
}

func (s *Storage) FindActiveSessionByPlayer(ctx context.Context, playerID model.PlayerID) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.playerSessions[playerID] {
		session := s.sessions[id]
		if session.IsActive() {
			return &session, nil
		}
	}
	return nil, model.ErrNoActiveSession
}

func (s *Storage) ListSessionsByPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.playerSessions[playerID]
	sessions := make([]*model.Session, 0, len(ids))
	for _, id := range ids {
		session := s.sessions[id]
		sessions = append(sessions, &session)
	}
	return sessions, nil
}

// Move operations

func (s *Storage) SaveMove(ctx context.Context, session *model.Session, move *model.Move) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[session.ID]
	if !ok {
		return model.ErrSessionNotFound
	}
	if stored.Revision != session.Revision || len(s.moves[move.SessionID]) != move.Number-1 {
		return storage.ErrStaleSession
	}
	s.saveSessionLocked(session)
	s.moves[move.SessionID] = append(s.moves[move.SessionID], *move)
	return nil
}

func (s *Storage) ListMoves(ctx context.Context, sessionID model.SessionID) ([]*model.Move, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.moves[sessionID]
	moves := make([]*model.Move, len(stored))
	for i := range stored {
		m := stored[i]
		moves[i] = &m
	}
	return moves, nil
}

func (s *Storage) CountMoves(ctx context.Context, sessionID model.SessionID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.moves[sessionID]), nil
}

// Presence operations

func (s *Storage) SetPresence(ctx context.Context, playerID model.PlayerID, online bool) ([]model.PlayerID, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if online {
		s.online[playerID] = struct{}{}
	} else {
		delete(s.online, playerID)
	}
	s.presenceVersion++
	return s.sortedOnlineLocked(), s.presenceVersion, nil
}

func (s *Storage) ListPresence(ctx context.Context) ([]model.PlayerID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedOnlineLocked(), nil
}

func (s *Storage) IsPresent(ctx context.Context, playerID model.PlayerID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.online[playerID]
	return ok, nil
}

func (s *Storage) sortedOnlineLocked() []model.PlayerID {
	ids := make([]model.PlayerID, 0, len(s.online))
	for id := range s.online {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Token revocation

func (s *Storage) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[tokenID] = expiresAt
	return nil
}

func (s *Storage) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[tokenID]
	return ok, nil
}

func (s *Storage) PurgeRevokedTokens(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for id, expiresAt := range s.revoked {
		if expiresAt.Before(before) {
			delete(s.revoked, id)
			purged++
		}
	}
	return purged, nil
}
