package fanout

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/duelgame/internal/model"
)

// Buffer size for queued broadcasts when none is configured
const defaultHubBuffer = 256

type registration struct {
	sub *Subscriber
	ack chan bool
}

// Hub fans events out to the subscribers of a single channel.
// One goroutine per hub keeps delivery in publish order.
type Hub struct {
	channel     model.Channel
	subscribers map[*Subscriber]bool
	mu          sync.RWMutex
	logger      *slog.Logger

	// Channels for managing subscribers
	register     chan registration
	unregister   chan registration
	closeIfEmpty chan chan bool
	broadcast    chan model.Event
	done         chan struct{}
	closeOnce    sync.Once
}

// NewHub creates a new Hub for a channel
func NewHub(channel model.Channel, bufferSize int, logger *slog.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultHubBuffer
	}
	return &Hub{
		channel:     channel,
		subscribers: make(map[*Subscriber]bool),
		logger:      logger.With(slog.String("channel", string(channel))),
		register:     make(chan registration),
		unregister:   make(chan registration),
		closeIfEmpty: make(chan chan bool),
		broadcast:    make(chan model.Event, bufferSize),
		done:         make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Debug("fanout hub started")
	for {
		select {
		case reg := <-h.register:
			select {
			case <-h.done:
				reg.ack <- false
				continue
			default:
			}
			h.mu.Lock()
			h.subscribers[reg.sub] = true
			count := len(h.subscribers)
			h.mu.Unlock()
			reg.ack <- true
			h.logger.Debug("fanout subscriber registered",
				slog.String("player_id", string(reg.sub.playerID)),
				slog.String("subscriber_id", reg.sub.id),
				slog.Int("total_subscribers", count))

		case reg := <-h.unregister:
			sub := reg.sub
			h.mu.Lock()
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				count := len(h.subscribers)
				h.mu.Unlock()
				reg.ack <- true
				h.logger.Debug("fanout subscriber unregistered",
					slog.String("player_id", string(sub.playerID)),
					slog.Duration("connection_duration", time.Since(sub.connectedAt)),
					slog.Int("total_subscribers", count))
			} else {
				h.mu.Unlock()
				reg.ack <- false
			}

		case ack := <-h.closeIfEmpty:
			// Decided here so no registration can slip in between the
			// emptiness check and the close
			h.mu.RLock()
			empty := len(h.subscribers) == 0
			h.mu.RUnlock()
			if empty {
				h.Close()
			}
			ack <- empty

		case event := <-h.broadcast:
			h.mu.RLock()
			sentCount := 0
			droppedCount := 0
			for sub := range h.subscribers {
				if sub.deliver(event) {
					sentCount++
					continue
				}
				droppedCount++
				h.logger.Warn("fanout delivery failure - subscriber buffer full",
					slog.String("player_id", string(sub.playerID)),
					slog.String("event", string(event.Type)))
			}
			h.mu.RUnlock()
			if droppedCount > 0 {
				h.logger.Warn("fanout broadcast partial failure",
					slog.Int("sent", sentCount),
					slog.Int("dropped", droppedCount))
			}

		case <-h.done:
			h.mu.Lock()
			count := len(h.subscribers)
			for sub := range h.subscribers {
				delete(h.subscribers, sub)
			}
			h.mu.Unlock()
			h.logger.Debug("fanout hub stopped", slog.Int("released_subscribers", count))
			return
		}
	}
}

// Register adds a subscriber and waits until the hub has recorded it,
// so events broadcast afterwards reach it. Returns false if the hub is closed.
func (h *Hub) Register(sub *Subscriber) bool {
	reg := registration{sub: sub, ack: make(chan bool, 1)}
	select {
	case h.register <- reg:
		return <-reg.ack
	case <-h.done:
		return false
	}
}

// Unregister removes a subscriber from the hub and waits until it is gone
func (h *Hub) Unregister(sub *Subscriber) {
	reg := registration{sub: sub, ack: make(chan bool, 1)}
	select {
	case h.unregister <- reg:
		<-reg.ack
	case <-h.done:
	}
}

// Broadcast queues an event for every subscriber without blocking
func (h *Hub) Broadcast(event model.Event) error {
	select {
	case <-h.done:
		return nil
	default:
	}
	select {
	case h.broadcast <- event:
		return nil
	default:
		h.logger.Warn("fanout broadcast dropped - hub buffer full",
			slog.String("event", string(event.Type)))
		return model.ErrDeliveryFailure
	}
}

// CloseIfEmpty shuts the hub down only if it has no subscribers, and reports
// whether it is closed afterwards
func (h *Hub) CloseIfEmpty() bool {
	ack := make(chan bool, 1)
	select {
	case h.closeIfEmpty <- ack:
		return <-ack
	case <-h.done:
		return true
	}
}

// Close shuts down the hub
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// SubscriberCount returns the number of registered subscribers
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// HasSubscriber reports whether sub is registered
func (h *Hub) HasSubscriber(sub *Subscriber) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.subscribers[sub]
}

func (h *Hub) snapshot() []*Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	return subs
}
