package moves

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"pgregory.net/rapid"

	"github.com/mcoot/duelgame/internal/dependencies/mocks"
	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/services/session"
	"github.com/mcoot/duelgame/internal/storage/memory"
	"github.com/mcoot/duelgame/internal/testutil"
)

type ProcessorSuite struct {
	suite.Suite
	storage   *memory.Storage
	clock     *mocks.MockClock
	sessions  *session.Store
	processor *Processor
	ctx       context.Context
}

func TestProcessorSuite(t *testing.T) {
	suite.Run(t, new(ProcessorSuite))
}

func (s *ProcessorSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	logger := testutil.NopLogger()
	s.sessions = session.New(s.storage, s.clock, logger)
	s.processor = New(s.sessions, s.clock, logger)
	s.ctx = context.Background()
}

func (s *ProcessorSuite) newSession() *model.Session {
	session, err := s.sessions.Create(s.ctx, "alice", "bob")
	s.Require().NoError(err)
	return session
}

func (s *ProcessorSuite) assertUnchanged(id model.SessionID, turn model.Role, moves int) {
	session, err := s.sessions.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(turn, session.CurrentTurn)
	count, err := s.storage.CountMoves(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(moves, count)
}

func (s *ProcessorSuite) TestFirstMoveByWhite() {
	session := s.newSession()
	s.clock.Advance(time.Second)

	move, err := s.processor.Submit(s.ctx, Request{SessionID: session.ID, From: "e2", To: "e4", Piece: "Pawn", Role: model.RoleWhite})
	s.Require().NoError(err)

	s.Equal(1, move.Number)
	s.Equal("Pe2-e4", move.Notation)
	s.Equal(model.RoleWhite, move.Role)
	s.True(move.CreatedAt.Equal(s.clock.Now()))

	stored, _ := s.sessions.Get(s.ctx, session.ID)
	s.Equal(model.RoleBlack, stored.CurrentTurn)
	s.True(stored.UpdatedAt.Equal(s.clock.Now()))
}

func (s *ProcessorSuite) TestPieceKeptAsGiven() {
	session := s.newSession()

	move, err := s.processor.Submit(s.ctx, Request{SessionID: session.ID, From: "e2", To: "e4", Piece: " Pawn", Role: model.RoleWhite})
	s.Require().NoError(err)
	s.Equal(" Pawn", move.Piece)
	s.Equal(" e2-e4", move.Notation)
}

func (s *ProcessorSuite) TestAlternatingMoves() {
	session := s.newSession()

	_, err := s.processor.Submit(s.ctx, Request{SessionID: session.ID, From: "e2", To: "e4", Piece: "Pawn", Role: model.RoleWhite})
	s.Require().NoError(err)
	move, err := s.processor.Submit(s.ctx, Request{SessionID: session.ID, From: "e7", To: "e5", Piece: "Pawn", Role: model.RoleBlack})
	s.Require().NoError(err)
	s.Equal(2, move.Number)

	moves, _ := s.sessions.ListMoves(s.ctx, session.ID)
	s.Require().Len(moves, 2)
	s.Equal("Pe2-e4", moves[0].Notation)
	s.Equal("Pe7-e5", moves[1].Notation)
}

func (s *ProcessorSuite) TestOutOfTurn() {
	session := s.newSession()

	_, err := s.processor.Submit(s.ctx, Request{SessionID: session.ID, From: "e7", To: "e5", Piece: "Pawn", Role: model.RoleBlack})
	s.ErrorIs(err, model.ErrTurnViolation)
	s.assertUnchanged(session.ID, model.RoleWhite, 0)
}

func (s *ProcessorSuite) TestMalformedMoves() {
	session := s.newSession()

	tests := []struct {
		name string
		req  Request
	}{
		{"file out of range", Request{From: "i9", To: "e4", Piece: "Pawn"}},
		{"rank out of range", Request{From: "e2", To: "e9", Piece: "Pawn"}},
		{"too long", Request{From: "e22", To: "e4", Piece: "Pawn"}},
		{"empty square", Request{From: "", To: "e4", Piece: "Pawn"}},
		{"blank piece", Request{From: "e2", To: "e4", Piece: "   "}},
		{"empty piece", Request{From: "e2", To: "e4", Piece: ""}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			tt.req.SessionID = session.ID
			tt.req.Role = model.RoleWhite
			_, err := s.processor.Submit(s.ctx, tt.req)
			s.ErrorIs(err, model.ErrMalformedMove)
			s.assertUnchanged(session.ID, model.RoleWhite, 0)
		})
	}
}

func (s *ProcessorSuite) TestTurnCheckedBeforeShape() {
	session := s.newSession()

	_, err := s.processor.Submit(s.ctx, Request{SessionID: session.ID, From: "z9", To: "e4", Piece: "", Role: model.RoleBlack})
	s.ErrorIs(err, model.ErrTurnViolation)
}

func (s *ProcessorSuite) TestUnknownSession() {
	_, err := s.processor.Submit(s.ctx, Request{SessionID: 404, From: "e2", To: "e4", Piece: "Pawn", Role: model.RoleWhite})
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *ProcessorSuite) TestInactiveSession() {
	session := s.newSession()
	_, err := s.sessions.Finish(s.ctx, session.ID)
	s.Require().NoError(err)

	_, err = s.processor.Submit(s.ctx, Request{SessionID: session.ID, From: "e2", To: "e4", Piece: "Pawn", Role: model.RoleBlack})
	s.ErrorIs(err, model.ErrSessionNotActive)
}

func (s *ProcessorSuite) TestRacingSubmissions() {
	session := s.newSession()

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, sq := range []model.Square{"e4", "d4"} {
		wg.Add(1)
		go func(to model.Square) {
			defer wg.Done()
			_, err := s.processor.Submit(s.ctx, Request{SessionID: session.ID, From: "e2", To: to, Piece: "Pawn", Role: model.RoleWhite})
			results <- err
		}(sq)
	}
	wg.Wait()
	close(results)

	var ok, turn int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case s.ErrorIs(err, model.ErrTurnViolation):
			turn++
		}
	}
	s.Equal(1, ok)
	s.Equal(1, turn)
	s.assertUnchanged(session.ID, model.RoleBlack, 1)
}

func TestRejectedMovesChangeNothing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		storage := memory.New()
		clk := mocks.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
		sessions := session.New(storage, clk, testutil.NopLogger())
		processor := New(sessions, clk, testutil.NopLogger())
		ctx := context.Background()
		sess, _ := sessions.Create(ctx, "alice", "bob")

		n := rapid.IntRange(1, 25).Draw(t, "n")
		for i := 0; i < n; i++ {
			req := Request{
				SessionID: sess.ID,
				From:      model.Square(rapid.StringMatching(`[a-j][0-9]`).Draw(t, "from")),
				To:        model.Square(rapid.StringMatching(`[a-j][0-9]`).Draw(t, "to")),
				Piece:     rapid.SampledFrom([]string{"Pawn", "", " ", "K"}).Draw(t, "piece"),
				Role:      rapid.SampledFrom([]model.Role{model.RoleWhite, model.RoleBlack}).Draw(t, "role"),
			}
			before, _ := sessions.Get(ctx, sess.ID)
			countBefore, _ := storage.CountMoves(ctx, sess.ID)

			move, err := processor.Submit(ctx, req)

			after, _ := sessions.Get(ctx, sess.ID)
			countAfter, _ := storage.CountMoves(ctx, sess.ID)
			if err != nil {
				if *before != *after || countBefore != countAfter {
					t.Fatalf("rejected move (%v) changed state", err)
				}
				continue
			}
			if move.Number != countBefore+1 || countAfter != countBefore+1 {
				t.Fatalf("move number %d after %d moves", move.Number, countBefore)
			}
			if after.CurrentTurn != before.CurrentTurn.Opponent() {
				t.Fatalf("turn did not flip")
			}
		}
	})
}
