package fanout

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mcoot/duelgame/internal/dependencies/clock"
	"github.com/mcoot/duelgame/internal/model"
)

// ErrBrokerClosed is returned when subscribing to a broker that has shut down
var ErrBrokerClosed = errors.New("fanout broker closed")

// Publisher delivers an event to everyone subscribed to a channel.
// Delivery is at-most-once; a channel with no subscribers is not an error.
type Publisher interface {
	Publish(ctx context.Context, channel model.Channel, event model.Event) error
}

// Config holds buffer sizes for hubs and subscribers
type Config struct {
	SubscriberBuffer int
	HubBuffer        int
}

// DefaultConfig returns the default buffer sizes
func DefaultConfig() Config {
	return Config{
		SubscriberBuffer: defaultSubscriberBuffer,
		HubBuffer:        defaultHubBuffer,
	}
}

// Broker owns one hub per channel and routes published events to it
type Broker struct {
	hubs   map[model.Channel]*Hub
	mu     sync.Mutex
	closed bool
	cfg    Config
	clock  clock.Clock
	logger *slog.Logger
}

// NewBroker creates a new Broker
func NewBroker(cfg Config, clk clock.Clock, logger *slog.Logger) *Broker {
	return &Broker{
		hubs:   make(map[model.Channel]*Hub),
		cfg:    cfg,
		clock:  clk,
		logger: logger.With(slog.String("component", "fanout")),
	}
}

var _ Publisher = (*Broker)(nil)

// NewSubscriber creates a subscriber using the broker's buffer size
func (b *Broker) NewSubscriber(playerID model.PlayerID) *Subscriber {
	return NewSubscriber(playerID, b.cfg.SubscriberBuffer)
}

// Publish stamps the event and queues it on the channel's hub.
// Returns ErrDeliveryFailure only when the hub's own queue is full.
func (b *Broker) Publish(ctx context.Context, channel model.Channel, event model.Event) error {
	event.Channel = channel
	if event.Timestamp.IsZero() {
		event.Timestamp = b.clock.Now()
	}

	hub := b.GetHub(channel)
	if hub == nil {
		return nil
	}
	return hub.Broadcast(event)
}

// Subscribe registers sub on each channel; events published after it returns are delivered
func (b *Broker) Subscribe(sub *Subscriber, channels ...model.Channel) error {
	for _, ch := range channels {
		for {
			hub, err := b.getOrCreateHub(ch)
			if err != nil {
				return err
			}
			if hub.Register(sub) {
				break
			}
			// Hub was cleaned up between lookup and register; fetch a fresh one
		}
	}
	return nil
}

// Unsubscribe removes sub from the given channels, or from every channel when none are given
func (b *Broker) Unsubscribe(sub *Subscriber, channels ...model.Channel) {
	var hubs []*Hub
	b.mu.Lock()
	if len(channels) == 0 {
		for _, hub := range b.hubs {
			hubs = append(hubs, hub)
		}
	} else {
		for _, ch := range channels {
			if hub, ok := b.hubs[ch]; ok {
				hubs = append(hubs, hub)
			}
		}
	}
	b.mu.Unlock()

	for _, hub := range hubs {
		hub.Unregister(sub)
	}
	if len(channels) == 0 {
		sub.close()
	}
}

// FollowStartedSession subscribes sub to the session channel announced by a
// session-started event, so a stream opened before the session began sees its moves
func (b *Broker) FollowStartedSession(sub *Subscriber, event model.Event) {
	if event.Type != model.EventSessionStarted {
		return
	}
	payload, ok := event.Payload.(model.SessionPayload)
	if !ok {
		return
	}
	if err := b.Subscribe(sub, model.SessionChannel(payload.SessionID)); err != nil {
		b.logger.Warn("fanout failed to follow started session",
			slog.String("player_id", string(sub.playerID)),
			slog.Int64("session_id", int64(payload.SessionID)),
			slog.Any("error", err))
	}
}

func (b *Broker) getOrCreateHub(channel model.Channel) (*Hub, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}
	if hub, ok := b.hubs[channel]; ok {
		return hub, nil
	}

	hub := NewHub(channel, b.cfg.HubBuffer, b.logger)
	b.hubs[channel] = hub
	go hub.Run()
	return hub, nil
}

// GetHub returns the hub for a channel, or nil if it doesn't exist
func (b *Broker) GetHub(channel model.Channel) *Hub {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hubs[channel]
}

// RemoveHub removes and closes a hub
func (b *Broker) RemoveHub(channel model.Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if hub, ok := b.hubs[channel]; ok {
		hub.Close()
		delete(b.hubs, channel)
		b.logger.Debug("fanout hub removed", slog.String("channel", string(channel)))
	}
}

// CleanupEmptyHubs removes hubs with no subscribers
func (b *Broker) CleanupEmptyHubs() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removedCount := 0
	for ch, hub := range b.hubs {
		if hub.CloseIfEmpty() {
			delete(b.hubs, ch)
			removedCount++
		}
	}
	if removedCount > 0 {
		b.logger.Info("fanout empty hubs cleaned up", slog.Int("removed", removedCount))
	}
	return removedCount
}

// HubCount returns the number of live hubs
func (b *Broker) HubCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.hubs)
}

// Close stops every hub and closes Done on every subscriber still attached
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for ch, hub := range b.hubs {
		for _, sub := range hub.snapshot() {
			sub.close()
		}
		hub.Close()
		delete(b.hubs, ch)
	}
}
