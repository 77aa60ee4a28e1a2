package redis

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/storage"
	"github.com/mcoot/duelgame/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	mini    *miniredis.Miniredis
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.PlayerTTL = time.Hour
	cfg.SessionTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.Storage = s.storage
	s.Ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

// Redis-specific tests

func (s *StorageSuite) TestKeysUsePrefix() {
	_ = s.storage.SavePlayer(s.Ctx, &model.Player{ID: "alice"})
	s.True(s.mini.Exists("duel:player:alice"))

	id, err := s.storage.NextSessionID(s.Ctx)
	s.Require().NoError(err)
	s.Require().NoError(s.storage.SaveSession(s.Ctx, &model.Session{ID: id, White: "alice", Black: "bob", Status: model.SessionStatusActive}))
	s.True(s.mini.Exists(sessionKey(id)))
	s.True(s.mini.Exists("duel:idx:player_sessions:alice"))
	s.True(s.mini.Exists("duel:idx:player_sessions:bob"))
}

func (s *StorageSuite) TestSessionTTLApplied() {
	session := &model.Session{ID: 1, White: "alice", Black: "bob", Status: model.SessionStatusActive}
	s.Require().NoError(s.storage.SaveSession(s.Ctx, session))
	s.Require().NoError(s.storage.SaveMove(s.Ctx, session, &model.Move{SessionID: 1, Number: 1}))

	s.Greater(s.mini.TTL(sessionKey(1)), time.Duration(0))
	s.Greater(s.mini.TTL(movesKey(1)), time.Duration(0))
	s.Greater(s.mini.TTL(playerSessionsIndexKey("alice")), time.Duration(0))
}

func (s *StorageSuite) TestSessionExpiry() {
	session := &model.Session{ID: 1, White: "alice", Black: "bob", Status: model.SessionStatusActive}
	s.Require().NoError(s.storage.SaveSession(s.Ctx, session))

	s.mini.FastForward(2 * time.Hour)

	_, err := s.storage.GetSession(s.Ctx, 1)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *StorageSuite) TestListSkipsExpiredSessions() {
	s.Require().NoError(s.storage.SaveSession(s.Ctx, &model.Session{ID: 1, White: "alice", Black: "bob", Status: model.SessionStatusActive}))
	s.Require().NoError(s.storage.SaveSession(s.Ctx, &model.Session{ID: 2, White: "alice", Black: "carol", Status: model.SessionStatusActive}))

	// Only the record vanishes; the index entry stays behind
	s.mini.Del(sessionKey(1))

	sessions, err := s.storage.ListSessionsByPlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(sessions, 1)
	s.Equal(model.SessionID(2), sessions[0].ID)
}

func (s *StorageSuite) TestMovesStoredAsList() {
	session := &model.Session{ID: 3, White: "alice", Black: "bob", Status: model.SessionStatusActive}
	s.Require().NoError(s.storage.SaveSession(s.Ctx, session))
	move := &model.Move{SessionID: 3, Number: 1, From: "e2", To: "e4", Piece: "P", Role: model.RoleWhite, Notation: "Pe2-e4"}
	s.Require().NoError(s.storage.SaveMove(s.Ctx, session, move))

	items, err := s.mini.List(movesKey(3))
	s.Require().NoError(err)
	s.Require().Len(items, 1)

	var stored model.Move
	s.Require().NoError(json.Unmarshal([]byte(items[0]), &stored))
	s.Equal("Pe2-e4", stored.Notation)
}

func (s *StorageSuite) TestCorruptData() {
	_ = s.mini.Set(sessionKey(9), "not valid json")

	_, err := s.storage.GetSession(s.Ctx, 9)
	s.Error(err)
}

func (s *StorageSuite) TestConcurrentMovesFromSeparateClientsCommitOnce() {
	session := &model.Session{ID: 5, White: "alice", Black: "bob", Status: model.SessionStatusActive, CurrentTurn: model.RoleWhite}
	s.Require().NoError(s.storage.SaveSession(s.Ctx, session))

	// Each worker is its own connection pool, as a separate server instance would be
	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			other := NewWithClient(redis.NewClient(&redis.Options{Addr: s.mini.Addr()}), s.storage.cfg)
			defer other.Close()

			current, err := other.GetSession(s.Ctx, 5)
			if err != nil {
				errs <- err
				return
			}
			current.CurrentTurn = model.RoleBlack
			errs <- other.SaveMove(s.Ctx, current, &model.Move{SessionID: 5, Number: 1, Role: model.RoleWhite})
		}()
	}
	wg.Wait()
	close(errs)

	committed := 0
	for err := range errs {
		if err == nil {
			committed++
			continue
		}
		s.ErrorIs(err, storage.ErrStaleSession)
	}
	s.Equal(1, committed)

	count, err := s.storage.CountMoves(s.Ctx, 5)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *StorageSuite) TestPresenceSharedAcrossClients() {
	other := NewWithClient(redis.NewClient(&redis.Options{Addr: s.mini.Addr()}), s.storage.cfg)
	defer other.Close()

	_, _, err := s.storage.SetPresence(s.Ctx, "alice", true)
	s.Require().NoError(err)

	present, err := other.IsPresent(s.Ctx, "alice")
	s.Require().NoError(err)
	s.True(present)
	s.True(s.mini.Exists(presenceKey()))
}

func (s *StorageSuite) TestRevocationCarriesTTL() {
	s.Require().NoError(s.storage.RevokeToken(s.Ctx, "abc", time.Now().Add(time.Hour)))
	s.Greater(s.mini.TTL(revokedTokenKey("abc")), time.Duration(0))

	// Already expired tokens need no marker
	s.Require().NoError(s.storage.RevokeToken(s.Ctx, "old", time.Now().Add(-time.Hour)))
	s.False(s.mini.Exists(revokedTokenKey("old")))
}
