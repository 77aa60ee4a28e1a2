// Package transport holds what the SSE and websocket streams share.
package transport

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/duelgame/internal/fanout"
	"github.com/mcoot/duelgame/internal/model"
)

// SessionLister finds the sessions a player sits in
type SessionLister interface {
	ListFor(ctx context.Context, playerID model.PlayerID) ([]*model.Session, error)
}

// Presence is told when a player's first stream opens and their last one closes
type Presence interface {
	SetOnline(ctx context.Context, playerID model.PlayerID, online bool)
}

// Open creates a subscriber for playerID and attaches it to the player's own
// channel, the presence channel and every session the player has not finished.
// The caller must release it with broker.Unsubscribe(sub).
func Open(ctx context.Context, broker *fanout.Broker, sessions SessionLister, playerID model.PlayerID) (*fanout.Subscriber, error) {
	list, err := sessions.ListFor(ctx, playerID)
	if err != nil {
		return nil, err
	}

	channels := []model.Channel{model.PlayerChannel(playerID), model.PresenceChannel}
	for _, s := range list {
		if s.Status != model.SessionStatusFinished {
			channels = append(channels, model.SessionChannel(s.ID))
		}
	}

	sub := broker.NewSubscriber(playerID)
	if err := broker.Subscribe(sub, channels...); err != nil {
		broker.Unsubscribe(sub)
		return nil, err
	}
	return sub, nil
}

// Streams opens and releases player streams and keeps a per-player count of
// the open ones, so SSE and websocket connections share one notion of
// "connected". Counts are per process.
type Streams struct {
	broker   *fanout.Broker
	sessions SessionLister
	presence Presence
	logger   *slog.Logger

	// mu also orders the presence calls for a player
	mu   sync.Mutex
	open map[model.PlayerID]int
}

// NewStreams creates a new stream tracker
func NewStreams(broker *fanout.Broker, sessions SessionLister, presence Presence, logger *slog.Logger) *Streams {
	return &Streams{
		broker:   broker,
		sessions: sessions,
		presence: presence,
		logger:   logger.With(slog.String("component", "streams")),
		open:     make(map[model.PlayerID]int),
	}
}

// Broker returns the broker streams subscribe through
func (s *Streams) Broker() *fanout.Broker {
	return s.broker
}

// Open subscribes a new stream for playerID. The player's first open
// stream marks them online. Every successful Open needs one Release.
func (s *Streams) Open(ctx context.Context, playerID model.PlayerID) (*fanout.Subscriber, error) {
	sub, err := Open(ctx, s.broker, s.sessions, playerID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.open[playerID]++
	if s.open[playerID] == 1 {
		s.presence.SetOnline(ctx, playerID, true)
	}
	s.logger.Debug("stream opened",
		slog.String("player_id", string(playerID)),
		slog.Int("open_streams", s.open[playerID]))
	return sub, nil
}

// Release unsubscribes the stream. Closing the player's last open stream
// marks them offline.
func (s *Streams) Release(ctx context.Context, sub *fanout.Subscriber) {
	s.broker.Unsubscribe(sub)

	playerID := sub.PlayerID()
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.open[playerID]
	if !ok {
		return
	}
	if n > 1 {
		s.open[playerID] = n - 1
		return
	}
	delete(s.open, playerID)
	s.presence.SetOnline(ctx, playerID, false)
	s.logger.Debug("last stream closed", slog.String("player_id", string(playerID)))
}

// OpenCount returns how many streams the player has open
func (s *Streams) OpenCount(playerID model.PlayerID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open[playerID]
}
