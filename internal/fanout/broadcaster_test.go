package fanout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/duelgame/internal/dependencies/mocks"
	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/testutil"
)

type BroadcasterSuite struct {
	suite.Suite
	broker      *Broker
	broadcaster *Broadcaster
	ctx         context.Context
}

func TestBroadcasterSuite(t *testing.T) {
	suite.Run(t, new(BroadcasterSuite))
}

func (s *BroadcasterSuite) SetupTest() {
	clk := mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	s.broker = NewBroker(DefaultConfig(), clk, testutil.NopLogger())
	s.broadcaster = NewBroadcaster(s.broker, clk, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *BroadcasterSuite) TearDownTest() {
	s.broker.Close()
}

func (s *BroadcasterSuite) subscribe(playerID model.PlayerID, channels ...model.Channel) *Subscriber {
	sub := s.broker.NewSubscriber(playerID)
	s.Require().NoError(s.broker.Subscribe(sub, channels...))
	return sub
}

func (s *BroadcasterSuite) TestInviteProposedTargetsInvitee() {
	alice := s.subscribe("alice", model.PlayerChannel("alice"))
	bob := s.subscribe("bob", model.PlayerChannel("bob"))

	s.Require().NoError(s.broadcaster.InviteProposed(s.ctx, "alice", "bob"))

	ev := receive(s.T(), bob)
	s.Equal(model.EventInviteProposed, ev.Type)
	s.Equal(model.InvitePayload{Type: model.InvitePropose, From: "alice", To: "bob"}, ev.Payload)
	assertNothing(s.T(), alice)
}

func (s *BroadcasterSuite) TestInviteDeclinedTargetsProposer() {
	alice := s.subscribe("alice", model.PlayerChannel("alice"))
	bob := s.subscribe("bob", model.PlayerChannel("bob"))

	s.Require().NoError(s.broadcaster.InviteDeclined(s.ctx, "alice", "bob"))

	ev := receive(s.T(), alice)
	s.Equal(model.EventInviteDeclined, ev.Type)
	assertNothing(s.T(), bob)
}

func (s *BroadcasterSuite) TestInviteFailedCarriesReason() {
	bob := s.subscribe("bob", model.PlayerChannel("bob"))

	s.Require().NoError(s.broadcaster.InviteFailed(s.ctx, "ghost", "bob", model.ErrUnknownPlayer))

	ev := receive(s.T(), bob)
	s.Equal(model.EventInviteFailed, ev.Type)
	payload := ev.Payload.(model.InviteFailedPayload)
	s.Equal(model.KindUnknownPlayer, payload.Reason)
}

func (s *BroadcasterSuite) TestSessionStartedCarriesRecipientRole() {
	bob := s.subscribe("bob", model.PlayerChannel("bob"))
	session := &model.Session{ID: 3, White: "alice", Black: "bob", Status: model.SessionStatusActive, CurrentTurn: model.RoleWhite}

	s.Require().NoError(s.broadcaster.SessionStarted(s.ctx, session, "bob"))

	ev := receive(s.T(), bob)
	payload := ev.Payload.(model.SessionPayload)
	s.Equal(model.SessionID(3), payload.SessionID)
	s.Equal(model.RoleBlack, payload.YourRole)
	s.Equal(model.RoleWhite, payload.CurrentTurn)
}

func (s *BroadcasterSuite) TestMoveAppliedGoesToSessionChannel() {
	follower := s.subscribe("carol", model.SessionChannel(3))

	move := &model.Move{SessionID: 3, Number: 1, From: "e2", To: "e4", Piece: "Pawn", Role: model.RoleWhite, Notation: "Pe2-e4"}
	s.Require().NoError(s.broadcaster.MoveApplied(s.ctx, move))

	ev := receive(s.T(), follower)
	s.Equal(model.EventMoveApplied, ev.Type)
	payload := ev.Payload.(model.MovePayload)
	s.Equal("Pe2-e4", payload.Notation)
	s.Equal(model.RoleBlack, payload.NextTurn)
}

func (s *BroadcasterSuite) TestMoveRejectedTargetsSubmitter() {
	alice := s.subscribe("alice", model.PlayerChannel("alice"))

	s.Require().NoError(s.broadcaster.MoveRejected(s.ctx, 3, "alice", model.ErrTurnViolation))

	ev := receive(s.T(), alice)
	payload := ev.Payload.(model.MoveRejectedPayload)
	s.Equal(model.KindTurnViolation, payload.Reason)
	assertNothing(s.T(), alice)
}

func (s *BroadcasterSuite) TestPresenceAndPlayerJoined() {
	watcher := s.subscribe("dave", model.PresenceChannel, model.SessionChannel(4))

	s.Require().NoError(s.broadcaster.PresenceChanged(s.ctx, model.PresencePayload{Online: []model.PlayerID{"alice"}, Player: "alice", IsOnline: true, Version: 1}))
	s.Equal(model.EventPresenceChanged, receive(s.T(), watcher).Type)

	session := &model.Session{ID: 4, White: "alice", Black: "bob"}
	s.Require().NoError(s.broadcaster.PlayerJoined(s.ctx, session, "bob"))
	ev := receive(s.T(), watcher)
	s.Equal(model.EventPlayerJoined, ev.Type)
	s.Equal(model.RoleBlack, ev.Payload.(model.PlayerJoinedPayload).Role)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, model.Channel, model.Event) error {
	return model.ErrDeliveryFailure
}

func (s *BroadcasterSuite) TestDeliveryFailureIsReturnedAndLogged() {
	logger, logs := testutil.CaptureLogger()
	b := NewBroadcaster(failingPublisher{}, mocks.NewMockClock(time.Now()), logger)

	err := b.InviteProposed(s.ctx, "alice", "bob")
	s.True(errors.Is(err, model.ErrDeliveryFailure))
	s.True(logs.Contains("event delivery failed"))
}
