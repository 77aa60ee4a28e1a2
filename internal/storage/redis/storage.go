package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Client exposes the underlying connection so the event bus can share it
func (s *Storage) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, playerKey(player.ID), data, s.cfg.PlayerTTL).Err()
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	data, err := s.client.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

// Session operations

func (s *Storage) NextSessionID(ctx context.Context) (model.SessionID, error) {
	n, err := s.client.Incr(ctx, sessionSeqKey()).Result()
	if err != nil {
		return 0, err
	}
	return model.SessionID(n), nil
}

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	key := sessionKey(session.ID)

	// WATCH the record so a write from another instance between our read
	// and EXEC aborts the transaction
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := decodeSession(tx.Get(ctx, key).Bytes())
		switch {
		case errors.Is(err, model.ErrSessionNotFound):
		case err != nil:
			return err
		case stored.Revision != session.Revision:
			return storage.ErrStaleSession
		}

		next := *session
		next.Revision++
		data, err := json.Marshal(&next)
		if err != nil {
			return err
		}

		// MULTI/EXEC so the record and both index entries land together
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			s.queueSession(ctx, pipe, &next, data)
			return nil
		})
		if err == nil {
			session.Revision = next.Revision
		}
		return err
	}, key)
	return staleOnTxFailure(err)
}

// queueSession adds the session write and its index updates to a pipeline
func (s *Storage) queueSession(ctx context.Context, pipe redis.Pipeliner, session *model.Session, data []byte) {
	pipe.Set(ctx, sessionKey(session.ID), data, s.cfg.SessionTTL)
	for _, p := range session.Participants() {
		indexKey := playerSessionsIndexKey(p)
		pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(session.ID), Member: int64(session.ID)})
		if s.cfg.SessionTTL > 0 {
			pipe.Expire(ctx, indexKey, s.cfg.SessionTTL) // Keep index TTL in sync
		}
	}
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	return decodeSession(s.client.Get(ctx, sessionKey(id)).Bytes())
}

func decodeSession(data []byte, err error) (*model.Session, error) {
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// staleOnTxFailure reports an aborted WATCH transaction as a stale write
func staleOnTxFailure(err error) error {
	if errors.Is(err, redis.TxFailedErr) {
		return storage.ErrStaleSession
	}
	return err
}

func (s *Storage) FindActiveSessionByPlayer(ctx context.Context, playerID model.PlayerID) (*model.Session, error) {
	sessions, err := s.ListSessionsByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	for _, session := range sessions {
		if session.IsActive() {
			return session, nil
		}
	}
	return nil, model.ErrNoActiveSession
}

func (s *Storage) ListSessionsByPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.Session, error) {
	// ZRANGE is ascending by score, and the score is the session id
	members, err := s.client.ZRange(ctx, playerSessionsIndexKey(playerID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	if len(members) == 0 {
		return []*model.Session{}, nil
	}

	keys := make([]string, len(members))
	for i, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt session index entry %q: %w", m, err)
		}
		keys[i] = sessionKey(model.SessionID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	sessions := make([]*model.Session, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue // Session expired but index entry remains
		}
		str, ok := v.(string)
		if !ok {
			continue
		}
		var session model.Session
		if err := json.Unmarshal([]byte(str), &session); err != nil {
			return nil, err
		}
		sessions = append(sessions, &session)
	}
	return sessions, nil
}

// Move operations

func (s *Storage) SaveMove(ctx context.Context, session *model.Session, move *model.Move) error {
	moveData, err := json.Marshal(move)
	if err != nil {
		return err
	}

	sKey := sessionKey(session.ID)
	mKey := movesKey(move.SessionID)

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := decodeSession(tx.Get(ctx, sKey).Bytes())
		if err != nil {
			return err
		}
		if stored.Revision != session.Revision {
			return storage.ErrStaleSession
		}
		count, err := tx.LLen(ctx, mKey).Result()
		if err != nil {
			return err
		}
		if int(count) != move.Number-1 {
			return storage.ErrStaleSession
		}

		next := *session
		next.Revision++
		sessionData, err := json.Marshal(&next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			s.queueSession(ctx, pipe, &next, sessionData)
			pipe.RPush(ctx, mKey, moveData)
			if s.cfg.SessionTTL > 0 {
				pipe.Expire(ctx, mKey, s.cfg.SessionTTL)
			}
			return nil
		})
		if err == nil {
			session.Revision = next.Revision
		}
		return err
	}, sKey, mKey)
	return staleOnTxFailure(err)
}

func (s *Storage) ListMoves(ctx context.Context, sessionID model.SessionID) ([]*model.Move, error) {
	values, err := s.client.LRange(ctx, movesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	moves := make([]*model.Move, 0, len(values))
	for _, v := range values {
		var move model.Move
		if err := json.Unmarshal([]byte(v), &move); err != nil {
			return nil, err
		}
		moves = append(moves, &move)
	}
	return moves, nil
}

func (s *Storage) CountMoves(ctx context.Context, sessionID model.SessionID) (int, error) {
	n, err := s.client.LLen(ctx, movesKey(sessionID)).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Presence operations

func (s *Storage) SetPresence(ctx context.Context, playerID model.PlayerID, online bool) ([]model.PlayerID, uint64, error) {
	var (
		version *redis.IntCmd
		members *redis.StringSliceCmd
	)
	// The version bump and the read-back share one MULTI so the snapshot
	// matches the version it is published under
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if online {
			pipe.SAdd(ctx, presenceKey(), string(playerID))
		} else {
			pipe.SRem(ctx, presenceKey(), string(playerID))
		}
		version = pipe.Incr(ctx, presenceSeqKey())
		members = pipe.SMembers(ctx, presenceKey())
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return sortedPlayerIDs(members.Val()), uint64(version.Val()), nil
}

func (s *Storage) ListPresence(ctx context.Context) ([]model.PlayerID, error) {
	members, err := s.client.SMembers(ctx, presenceKey()).Result()
	if err != nil {
		return nil, err
	}
	return sortedPlayerIDs(members), nil
}

func (s *Storage) IsPresent(ctx context.Context, playerID model.PlayerID) (bool, error) {
	return s.client.SIsMember(ctx, presenceKey(), string(playerID)).Result()
}

func sortedPlayerIDs(members []string) []model.PlayerID {
	ids := make([]model.PlayerID, len(members))
	for i, m := range members {
		ids[i] = model.PlayerID(m)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Token revocation

// RevokeToken keeps the marker until the token would have expired anyway.
// A token already past expiry is not recorded.
func (s *Storage) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, revokedTokenKey(tokenID), expiresAt.Unix(), ttl).Err()
}

func (s *Storage) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedTokenKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PurgeRevokedTokens is a no-op; revocation markers carry their own TTL
func (s *Storage) PurgeRevokedTokens(ctx context.Context, before time.Time) (int, error) {
	return 0, nil
}
