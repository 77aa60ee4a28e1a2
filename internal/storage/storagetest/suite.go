// Package storagetest holds the behaviour every storage.Storage implementation must share.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/storage"
)

// Suite runs the shared storage checks. Embed it and set Storage in SetupTest.
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func (s *Suite) newSession(white, black model.PlayerID, status model.SessionStatus) *model.Session {
	id, err := s.Storage.NextSessionID(s.Ctx)
	s.Require().NoError(err)
	session := &model.Session{
		ID:          id,
		White:       white,
		Black:       black,
		Status:      status,
		CurrentTurn: model.RoleWhite,
		CreatedAt:   epoch,
		UpdatedAt:   epoch,
	}
	s.Require().NoError(s.Storage.SaveSession(s.Ctx, session))
	return session
}

// Player tests

func (s *Suite) TestSaveAndGetPlayer() {
	player := &model.Player{ID: "alice", DisplayName: "Alice", CreatedAt: epoch}

	err := s.Storage.SavePlayer(s.Ctx, player)
	s.Require().NoError(err)

	retrieved, err := s.Storage.GetPlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(player.ID, retrieved.ID)
	s.Equal(player.DisplayName, retrieved.DisplayName)
	s.True(player.CreatedAt.Equal(retrieved.CreatedAt))
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.Storage.GetPlayer(s.Ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Session tests

func (s *Suite) TestNextSessionIDIsMonotonic() {
	first, err := s.Storage.NextSessionID(s.Ctx)
	s.Require().NoError(err)
	second, err := s.Storage.NextSessionID(s.Ctx)
	s.Require().NoError(err)
	s.Greater(int64(second), int64(first))
}

func (s *Suite) TestSaveAndGetSession() {
	session := s.newSession("alice", "bob", model.SessionStatusActive)

	retrieved, err := s.Storage.GetSession(s.Ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(session.ID, retrieved.ID)
	s.Equal(model.PlayerID("alice"), retrieved.White)
	s.Equal(model.PlayerID("bob"), retrieved.Black)
	s.Equal(model.SessionStatusActive, retrieved.Status)
	s.Equal(model.RoleWhite, retrieved.CurrentTurn)
}

func (s *Suite) TestGetSessionNotFound() {
	_, err := s.Storage.GetSession(s.Ctx, 999)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestReturnedSessionIsACopy() {
	session := s.newSession("alice", "bob", model.SessionStatusActive)

	retrieved, err := s.Storage.GetSession(s.Ctx, session.ID)
	s.Require().NoError(err)
	retrieved.Status = model.SessionStatusFinished

	again, err := s.Storage.GetSession(s.Ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(model.SessionStatusActive, again.Status)
}

func (s *Suite) TestFindActiveSessionByPlayerReturnsLowestActive() {
	finished := s.newSession("alice", "bob", model.SessionStatusFinished)
	first := s.newSession("carol", "alice", model.SessionStatusActive)
	_ = s.newSession("alice", "dave", model.SessionStatusActive)
	s.Require().Less(int64(finished.ID), int64(first.ID))

	active, err := s.Storage.FindActiveSessionByPlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(first.ID, active.ID)
}

func (s *Suite) TestFindActiveSessionByPlayerNone() {
	_ = s.newSession("alice", "bob", model.SessionStatusFinished)

	_, err := s.Storage.FindActiveSessionByPlayer(s.Ctx, "alice")
	s.ErrorIs(err, model.ErrNoActiveSession)

	_, err = s.Storage.FindActiveSessionByPlayer(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrNoActiveSession)
}

func (s *Suite) TestListSessionsByPlayer() {
	a := s.newSession("alice", "bob", model.SessionStatusActive)
	_ = s.newSession("carol", "dave", model.SessionStatusActive)
	b := s.newSession("bob", "alice", model.SessionStatusPaused)

	sessions, err := s.Storage.ListSessionsByPlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(sessions, 2)
	s.Equal(a.ID, sessions[0].ID)
	s.Equal(b.ID, sessions[1].ID)

	sessions, err = s.Storage.ListSessionsByPlayer(s.Ctx, "nobody")
	s.Require().NoError(err)
	s.Empty(sessions)
}

func (s *Suite) TestResavingSessionDoesNotDuplicateIndex() {
	session := s.newSession("alice", "bob", model.SessionStatusActive)
	session.Status = model.SessionStatusPaused
	s.Require().NoError(s.Storage.SaveSession(s.Ctx, session))

	sessions, err := s.Storage.ListSessionsByPlayer(s.Ctx, "bob")
	s.Require().NoError(err)
	s.Require().Len(sessions, 1)
	s.Equal(model.SessionStatusPaused, sessions[0].Status)
}

func (s *Suite) TestSaveAdvancesRevision() {
	session := s.newSession("alice", "bob", model.SessionStatusActive)
	s.Equal(int64(1), session.Revision)

	session.Status = model.SessionStatusPaused
	s.Require().NoError(s.Storage.SaveSession(s.Ctx, session))
	s.Equal(int64(2), session.Revision)

	stored, err := s.Storage.GetSession(s.Ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), stored.Revision)
}

func (s *Suite) TestStaleSessionWriteRejected() {
	session := s.newSession("alice", "bob", model.SessionStatusActive)
	other, err := s.Storage.GetSession(s.Ctx, session.ID)
	s.Require().NoError(err)

	session.Status = model.SessionStatusPaused
	s.Require().NoError(s.Storage.SaveSession(s.Ctx, session))

	other.Status = model.SessionStatusFinished
	s.ErrorIs(s.Storage.SaveSession(s.Ctx, other), storage.ErrStaleSession)

	stored, err := s.Storage.GetSession(s.Ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(model.SessionStatusPaused, stored.Status)
}

// Move tests

func (s *Suite) TestSaveMoveUpdatesSessionAndAppends() {
	session := s.newSession("alice", "bob", model.SessionStatusActive)

	session.CurrentTurn = model.RoleBlack
	session.UpdatedAt = epoch.Add(time.Minute)
	move := &model.Move{
		SessionID: session.ID,
		Number:    1,
		From:      "e2",
		To:        "e4",
		Piece:     "Pawn",
		Role:      model.RoleWhite,
		Notation:  "Pe2-e4",
		CreatedAt: epoch.Add(time.Minute),
	}
	s.Require().NoError(s.Storage.SaveMove(s.Ctx, session, move))

	stored, err := s.Storage.GetSession(s.Ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(model.RoleBlack, stored.CurrentTurn)

	count, err := s.Storage.CountMoves(s.Ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(1, count)

	moves, err := s.Storage.ListMoves(s.Ctx, session.ID)
	s.Require().NoError(err)
	s.Require().Len(moves, 1)
	s.Equal("Pe2-e4", moves[0].Notation)
	s.Equal(model.RoleWhite, moves[0].Role)
}

func (s *Suite) TestListMovesPreservesOrder() {
	session := s.newSession("alice", "bob", model.SessionStatusActive)

	squares := []struct{ from, to model.Square }{{"e2", "e4"}, {"e7", "e5"}, {"g1", "f3"}}
	role := model.RoleWhite
	for i, sq := range squares {
		session.CurrentTurn = role.Opponent()
		move := &model.Move{SessionID: session.ID, Number: i + 1, From: sq.from, To: sq.to, Piece: "P", Role: role}
		s.Require().NoError(s.Storage.SaveMove(s.Ctx, session, move))
		role = role.Opponent()
	}

	moves, err := s.Storage.ListMoves(s.Ctx, session.ID)
	s.Require().NoError(err)
	s.Require().Len(moves, 3)
	for i, m := range moves {
		s.Equal(i+1, m.Number)
		s.Equal(squares[i].from, m.From)
	}
}

func (s *Suite) TestListMovesEmpty() {
	moves, err := s.Storage.ListMoves(s.Ctx, 12345)
	s.Require().NoError(err)
	s.Empty(moves)

	count, err := s.Storage.CountMoves(s.Ctx, 12345)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *Suite) TestSaveMoveFromStaleReadRejected() {
	session := s.newSession("alice", "bob", model.SessionStatusActive)
	other, err := s.Storage.GetSession(s.Ctx, session.ID)
	s.Require().NoError(err)

	session.CurrentTurn = model.RoleBlack
	s.Require().NoError(s.Storage.SaveMove(s.Ctx, session,
		&model.Move{SessionID: session.ID, Number: 1, From: "e2", To: "e4", Piece: "P", Role: model.RoleWhite}))

	// A second writer that read the same revision loses
	other.CurrentTurn = model.RoleBlack
	err = s.Storage.SaveMove(s.Ctx, other,
		&model.Move{SessionID: session.ID, Number: 1, From: "d2", To: "d4", Piece: "P", Role: model.RoleWhite})
	s.ErrorIs(err, storage.ErrStaleSession)

	moves, err := s.Storage.ListMoves(s.Ctx, session.ID)
	s.Require().NoError(err)
	s.Require().Len(moves, 1)
	s.Equal(model.Square("e2"), moves[0].From)
}

func (s *Suite) TestSaveMoveOutOfSequenceRejected() {
	session := s.newSession("alice", "bob", model.SessionStatusActive)

	err := s.Storage.SaveMove(s.Ctx, session, &model.Move{SessionID: session.ID, Number: 2, Role: model.RoleWhite})
	s.ErrorIs(err, storage.ErrStaleSession)

	count, err := s.Storage.CountMoves(s.Ctx, session.ID)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *Suite) TestSaveMoveUnknownSession() {
	session := &model.Session{ID: 4242, White: "alice", Black: "bob", Status: model.SessionStatusActive}
	err := s.Storage.SaveMove(s.Ctx, session, &model.Move{SessionID: 4242, Number: 1})
	s.ErrorIs(err, model.ErrSessionNotFound)
}

// Presence tests

func (s *Suite) TestPresenceSetAndList() {
	online, first, err := s.Storage.SetPresence(s.Ctx, "bob", true)
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"bob"}, online)

	online, second, err := s.Storage.SetPresence(s.Ctx, "alice", true)
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"alice", "bob"}, online)
	s.Greater(second, first)

	present, err := s.Storage.IsPresent(s.Ctx, "alice")
	s.Require().NoError(err)
	s.True(present)

	online, _, err = s.Storage.SetPresence(s.Ctx, "alice", false)
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"bob"}, online)

	listed, err := s.Storage.ListPresence(s.Ctx)
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"bob"}, listed)

	present, err = s.Storage.IsPresent(s.Ctx, "alice")
	s.Require().NoError(err)
	s.False(present)
}

func (s *Suite) TestPresenceEmpty() {
	listed, err := s.Storage.ListPresence(s.Ctx)
	s.Require().NoError(err)
	s.Empty(listed)

	online, _, err := s.Storage.SetPresence(s.Ctx, "ghost", false)
	s.Require().NoError(err)
	s.Empty(online)
}

// Revocation tests

func (s *Suite) TestRevokeToken() {
	revoked, err := s.Storage.IsTokenRevoked(s.Ctx, "token-1")
	s.Require().NoError(err)
	s.False(revoked)

	s.Require().NoError(s.Storage.RevokeToken(s.Ctx, "token-1", time.Now().Add(time.Hour)))

	revoked, err = s.Storage.IsTokenRevoked(s.Ctx, "token-1")
	s.Require().NoError(err)
	s.True(revoked)

	revoked, err = s.Storage.IsTokenRevoked(s.Ctx, "token-2")
	s.Require().NoError(err)
	s.False(revoked)
}
