package fanout

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/duelgame/internal/model"
)

// Buffer size for outgoing events when none is configured
const defaultSubscriberBuffer = 64

// Subscriber is one connected stream (an SSE response or a websocket).
// Hubs never close Events; Done is closed once the broker drops the subscriber.
type Subscriber struct {
	id          string
	playerID    model.PlayerID
	send        chan model.Event
	done        chan struct{}
	closeOnce   sync.Once
	dropped     atomic.Uint64
	connectedAt time.Time
}

// NewSubscriber creates a subscriber for the given player
func NewSubscriber(playerID model.PlayerID, bufferSize int) *Subscriber {
	if bufferSize <= 0 {
		bufferSize = defaultSubscriberBuffer
	}
	return &Subscriber{
		id:          uuid.NewString(),
		playerID:    playerID,
		send:        make(chan model.Event, bufferSize),
		done:        make(chan struct{}),
		connectedAt: time.Now(),
	}
}

// ID returns the unique connection id
func (s *Subscriber) ID() string {
	return s.id
}

// PlayerID returns the player this stream belongs to
func (s *Subscriber) PlayerID() model.PlayerID {
	return s.playerID
}

// Events returns the stream of delivered events
func (s *Subscriber) Events() <-chan model.Event {
	return s.send
}

// Done is closed when the subscriber has been shut down by the broker
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Dropped returns how many events were discarded because the buffer was full
func (s *Subscriber) Dropped() uint64 {
	return s.dropped.Load()
}

// deliver hands the event over without blocking; false means it was dropped
func (s *Subscriber) deliver(event model.Event) bool {
	select {
	case s.send <- event:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() { close(s.done) })
}
