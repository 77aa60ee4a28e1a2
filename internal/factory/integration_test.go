package factory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/duelgame/internal/fanout"
	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/services/moves"
	redisstorage "github.com/mcoot/duelgame/internal/storage/redis"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	s.Require().NoError(s.app.Close())
}

func (s *IntegrationSuite) login(id model.PlayerID) {
	_, err := s.app.AuthService.Login(s.ctx, id, "")
	s.Require().NoError(err)
}

func (s *IntegrationSuite) subscribe(player model.PlayerID, channels ...model.Channel) *fanout.Subscriber {
	sub := s.app.Broker.NewSubscriber(player)
	s.Require().NoError(s.app.Broker.Subscribe(sub, channels...))
	return sub
}

func (s *IntegrationSuite) next(sub *fanout.Subscriber) model.Event {
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(2 * time.Second):
		s.FailNow("timed out waiting for event")
		return model.Event{}
	}
}

// Test: Invite, accept and alternate moves, end to end through the wired services
func (s *IntegrationSuite) TestCompleteSessionFlow() {
	s.login("alice")
	s.login("bob")

	aliceSub := s.subscribe("alice", model.PlayerChannel("alice"))
	bobSub := s.subscribe("bob", model.PlayerChannel("bob"))

	// Step 1: Alice invites Bob
	s.Require().NoError(s.app.Invites.Propose(s.ctx, "alice", "bob"))
	ev := s.next(bobSub)
	s.Equal(model.EventInviteProposed, ev.Type)

	// Step 2: Bob accepts; both get session-started with their roles
	outcome, err := s.app.Invites.Respond(s.ctx, "alice", "bob", true)
	s.Require().NoError(err)
	s.Empty(outcome.Undelivered)
	sess := outcome.Session

	ev = s.next(aliceSub)
	s.Equal(model.EventSessionStarted, ev.Type)
	s.Equal(model.RoleWhite, ev.Payload.(model.SessionPayload).YourRole)
	ev = s.next(bobSub)
	s.Equal(model.RoleBlack, ev.Payload.(model.SessionPayload).YourRole)

	// Step 3: Play four moves in turn order
	plays := []moves.Request{
		{From: "e2", To: "e4", Piece: "Pawn", Role: model.RoleWhite},
		{From: "e7", To: "e5", Piece: "Pawn", Role: model.RoleBlack},
		{From: "g1", To: "f3", Piece: "Knight", Role: model.RoleWhite},
		{From: "b8", To: "c6", Piece: "Knight", Role: model.RoleBlack},
	}
	for i, p := range plays {
		p.SessionID = sess.ID
		move, err := s.app.Moves.Submit(s.ctx, p)
		s.Require().NoError(err)
		s.Equal(i+1, move.Number)
	}

	// Step 4: A repeated move by the same role is refused and changes nothing
	_, err = s.app.Moves.Submit(s.ctx, moves.Request{SessionID: sess.ID, From: "d7", To: "d6", Piece: "Pawn", Role: model.RoleBlack})
	s.ErrorIs(err, model.ErrTurnViolation)

	history, err := s.app.Sessions.ListMoves(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Len(history, 4)
	s.Equal("Nb8-c6", history[3].Notation)

	current, err := s.app.Sessions.Get(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(model.RoleWhite, current.CurrentTurn)

	// Step 5: Finish
	finished, err := s.app.Sessions.Finish(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(model.SessionStatusFinished, finished.Status)

	_, err = s.app.Sessions.FindActiveFor(s.ctx, "alice")
	s.ErrorIs(err, model.ErrNoActiveSession)
}

func (s *IntegrationSuite) TestPresenceFollowsLogin() {
	sub := s.subscribe("watcher", model.PresenceChannel)

	s.login("alice")
	ev := s.next(sub)
	s.Equal(model.EventPresenceChanged, ev.Type)
	snapshot := ev.Payload.(model.PresencePayload)
	s.Equal([]model.PlayerID{"alice"}, snapshot.Online)
	s.True(snapshot.IsOnline)

	s.Equal([]model.PlayerID{"alice"}, s.app.Presence.ListOnline(s.ctx))
}

func (s *IntegrationSuite) TestTokensUseMockClock() {
	session, err := s.app.AuthService.Login(s.ctx, "alice", "Alice")
	s.Require().NoError(err)

	_, err = s.app.AuthService.ValidateToken(s.ctx, session.Token)
	s.Require().NoError(err)

	s.app.MockClock.Advance(25 * time.Hour)
	_, err = s.app.AuthService.ValidateToken(s.ctx, session.Token)
	s.Error(err)
}

func TestNewRejectsBadConfig(t *testing.T) {
	withSecret := authConfigForTest()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing secret", Config{}},
		{"unknown storage", Config{StorageType: "sqlite", AuthConfig: withSecret}},
		{"unknown fanout", Config{FanoutType: "kafka", AuthConfig: withSecret}},
		{"redis storage without config", Config{StorageType: StorageTypeRedis, AuthConfig: withSecret}},
		{"redis fanout without config", Config{FanoutType: FanoutTypeRedis, AuthConfig: withSecret}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewWithRedisBackends(t *testing.T) {
	mr := miniredis.RunT(t)

	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = fmt.Sprintf("redis://%s", mr.Addr())

	app, err := New(Config{
		StorageType: StorageTypeRedis,
		FanoutType:  FanoutTypeRedis,
		RedisConfig: &redisCfg,
		AuthConfig:  authConfigForTest(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = app.Close() }()

	if app.Bus == nil {
		t.Fatal("expected redis bus to be wired")
	}
	if _, ok := app.Storage.(*redisstorage.Storage); !ok {
		t.Fatalf("storage is %T, want redis", app.Storage)
	}
}

// Test: Two app instances sharing Redis see each other's events
func TestRedisBusAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newInstance := func() *TestApp {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		app := NewTestAppWithRedisBus(client)
		ps, err := app.Bus.Listen(ctx)
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		go app.Bus.Relay(ctx, ps)
		t.Cleanup(func() { _ = app.Close() })
		return app
	}

	east := newInstance()
	west := newInstance()

	sub := west.Broker.NewSubscriber("bob")
	if err := west.Broker.Subscribe(sub, model.PlayerChannel("bob")); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := east.Broadcaster.InviteProposed(ctx, "alice", "bob"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case ev := <-sub.Events():
		if ev.Type != model.EventInviteProposed {
			t.Fatalf("got %s", ev.Type)
		}
		if p, ok := ev.Payload.(model.InvitePayload); !ok || p.From != "alice" {
			t.Fatalf("payload %#v", ev.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event did not cross instances")
	}
}
