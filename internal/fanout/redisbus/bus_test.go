package redisbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/duelgame/internal/dependencies/mocks"
	"github.com/mcoot/duelgame/internal/fanout"
	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/testutil"
)

type BusSuite struct {
	suite.Suite
	mini   *miniredis.Miniredis
	client *redis.Client
	broker *fanout.Broker
	bus    *Bus
	ctx    context.Context
	cancel context.CancelFunc
}

func TestBusSuite(t *testing.T) {
	suite.Run(t, new(BusSuite))
}

func (s *BusSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())
	s.client = redis.NewClient(&redis.Options{Addr: s.mini.Addr()})

	clk := mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	s.broker = fanout.NewBroker(fanout.DefaultConfig(), clk, testutil.NopLogger())
	s.bus = New(s.client, s.broker, testutil.NopLogger())
	s.ctx, s.cancel = context.WithCancel(context.Background())

	ps, err := s.bus.Listen(s.ctx)
	s.Require().NoError(err)
	go s.bus.Relay(s.ctx, ps)
}

func (s *BusSuite) TearDownTest() {
	s.cancel()
	s.broker.Close()
	_ = s.client.Close()
}

func (s *BusSuite) receive(sub *fanout.Subscriber) model.Event {
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(2 * time.Second):
		s.FailNow("subscriber did not receive event")
		return model.Event{}
	}
}

func (s *BusSuite) TestPublishRelaysTypedPayload() {
	sub := s.broker.NewSubscriber("bob")
	s.Require().NoError(s.broker.Subscribe(sub, model.SessionChannel(5)))

	move := model.MovePayload{SessionID: 5, Number: 1, From: "e2", To: "e4", Piece: "Pawn", Role: model.RoleWhite, Notation: "Pe2-e4", NextTurn: model.RoleBlack}
	err := s.bus.Publish(s.ctx, model.SessionChannel(5), model.Event{Type: model.EventMoveApplied, Payload: move})
	s.Require().NoError(err)

	ev := s.receive(sub)
	s.Equal(model.EventMoveApplied, ev.Type)
	s.Equal(model.SessionChannel(5), ev.Channel)
	s.Equal(move, ev.Payload)
}

func (s *BusSuite) TestBroadcasterThroughBus() {
	clk := mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	broadcaster := fanout.NewBroadcaster(s.bus, clk, testutil.NopLogger())

	sub := s.broker.NewSubscriber("bob")
	s.Require().NoError(s.broker.Subscribe(sub, model.PlayerChannel("bob")))

	session := &model.Session{ID: 9, White: "alice", Black: "bob", Status: model.SessionStatusActive, CurrentTurn: model.RoleWhite}
	s.Require().NoError(broadcaster.SessionStarted(s.ctx, session, "bob"))

	ev := s.receive(sub)
	payload, ok := ev.Payload.(model.SessionPayload)
	s.Require().True(ok)
	s.Equal(model.RoleBlack, payload.YourRole)
	s.True(ev.Timestamp.Equal(clk.Now()))
}

func (s *BusSuite) TestUnknownEventTypeKeepsRawPayload() {
	sub := s.broker.NewSubscriber("bob")
	s.Require().NoError(s.broker.Subscribe(sub, model.PresenceChannel))

	s.Require().NoError(s.bus.Publish(s.ctx, model.PresenceChannel, model.Event{Type: "custom", Payload: map[string]int{"n": 1}}))

	ev := s.receive(sub)
	raw, ok := ev.Payload.(json.RawMessage)
	s.Require().True(ok)
	s.JSONEq(`{"n":1}`, string(raw))
}

func (s *BusSuite) TestGarbageMessageIsDropped() {
	sub := s.broker.NewSubscriber("bob")
	s.Require().NoError(s.broker.Subscribe(sub, model.PresenceChannel))

	s.mini.Publish(redisChannel(model.PresenceChannel), "not json")
	s.Require().NoError(s.bus.Publish(s.ctx, model.PresenceChannel, model.Event{Type: model.EventPresenceChanged, Payload: model.PresencePayload{Version: 2}}))

	ev := s.receive(sub)
	s.Equal(model.EventPresenceChanged, ev.Type)
	s.Equal(uint64(2), ev.Payload.(model.PresencePayload).Version)
}

func TestDecodeEventRoundTrip(t *testing.T) {
	want := model.InviteFailedPayload{From: "a", To: "b", Reason: model.KindUnknownPlayer}
	data, err := json.Marshal(model.Event{Type: model.EventInviteFailed, Payload: want})
	require.NoError(t, err)

	ev, err := decodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, want, ev.Payload)
}
