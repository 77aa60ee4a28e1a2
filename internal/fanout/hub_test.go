package fanout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/testutil"
)

func receive(t *testing.T, sub *Subscriber) model.Event {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
		return model.Event{}
	}
}

func assertNothing(t *testing.T, sub *Subscriber) {
	t.Helper()
	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event %s on %s", ev.Type, ev.Channel)
	case <-time.After(30 * time.Millisecond):
	}
}

func newRunningHub(t *testing.T, buffer int) *Hub {
	t.Helper()
	hub := NewHub("session:1", buffer, testutil.NopLogger())
	go hub.Run()
	t.Cleanup(hub.Close)
	return hub
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := newRunningHub(t, 0)

	sub := NewSubscriber("alice", 4)
	require.True(t, hub.Register(sub))
	assert.Equal(t, 1, hub.SubscriberCount())

	require.NoError(t, hub.Broadcast(model.Event{Type: model.EventMoveApplied}))

	ev := receive(t, sub)
	assert.Equal(t, model.EventMoveApplied, ev.Type)
}

func TestHub_Unregister(t *testing.T) {
	hub := newRunningHub(t, 0)

	sub := NewSubscriber("alice", 4)
	require.True(t, hub.Register(sub))
	hub.Unregister(sub)

	assert.Equal(t, 0, hub.SubscriberCount())
	assert.False(t, hub.HasSubscriber(sub))

	// Unregistering twice is harmless
	hub.Unregister(sub)
}

func TestHub_BroadcastToMultipleSubscribers(t *testing.T) {
	hub := newRunningHub(t, 0)

	subs := []*Subscriber{
		NewSubscriber("alice", 4),
		NewSubscriber("bob", 4),
		NewSubscriber("carol", 4),
	}
	for _, sub := range subs {
		require.True(t, hub.Register(sub))
	}

	require.NoError(t, hub.Broadcast(model.Event{Type: model.EventSessionUpdated}))

	for _, sub := range subs {
		ev := receive(t, sub)
		assert.Equal(t, model.EventSessionUpdated, ev.Type)
	}
}

func TestHub_PreservesPublishOrder(t *testing.T) {
	hub := newRunningHub(t, 0)

	sub := NewSubscriber("alice", 100)
	require.True(t, hub.Register(sub))

	for i := 1; i <= 50; i++ {
		require.NoError(t, hub.Broadcast(model.Event{Type: model.EventMoveApplied, Payload: i}))
	}
	for i := 1; i <= 50; i++ {
		ev := receive(t, sub)
		assert.Equal(t, i, ev.Payload)
	}
}

func TestHub_SlowSubscriberDropsOnlyItsOwnEvents(t *testing.T) {
	hub := newRunningHub(t, 0)

	slow := NewSubscriber("slow", 1)
	fast := NewSubscriber("fast", 10)
	require.True(t, hub.Register(slow))
	require.True(t, hub.Register(fast))

	for i := 0; i < 3; i++ {
		require.NoError(t, hub.Broadcast(model.Event{Type: model.EventMoveApplied, Payload: i}))
	}

	for i := 0; i < 3; i++ {
		ev := receive(t, fast)
		assert.Equal(t, i, ev.Payload)
	}
	ev := receive(t, slow)
	assert.Equal(t, 0, ev.Payload)
	assertNothing(t, slow)
	assert.Equal(t, uint64(2), slow.Dropped())
	assert.Zero(t, fast.Dropped())
}

func TestHub_RegisterAfterClose(t *testing.T) {
	hub := NewHub("session:1", 0, testutil.NopLogger())
	go hub.Run()
	hub.Close()

	assert.False(t, hub.Register(NewSubscriber("alice", 1)))
	assert.NoError(t, hub.Broadcast(model.Event{Type: model.EventMoveApplied}))

	// Closing twice is harmless
	hub.Close()
}

func TestHub_CloseIfEmpty(t *testing.T) {
	hub := newRunningHub(t, 0)

	sub := NewSubscriber("alice", 1)
	require.True(t, hub.Register(sub))
	assert.False(t, hub.CloseIfEmpty())
	assert.True(t, hub.Register(NewSubscriber("bob", 1)))

	hub.Unregister(sub)
	assert.False(t, hub.CloseIfEmpty())
}

func TestHub_CloseIfEmptyRejectsLaterRegistration(t *testing.T) {
	hub := newRunningHub(t, 0)

	assert.True(t, hub.CloseIfEmpty())
	assert.False(t, hub.Register(NewSubscriber("alice", 1)))
	assert.True(t, hub.CloseIfEmpty())
}

func TestHub_FullQueueReportsDeliveryFailure(t *testing.T) {
	// Not running, so nothing drains the queue
	hub := NewHub("session:1", 1, testutil.NopLogger())
	defer hub.Close()

	require.NoError(t, hub.Broadcast(model.Event{Type: model.EventMoveApplied}))
	err := hub.Broadcast(model.Event{Type: model.EventMoveApplied})
	assert.ErrorIs(t, err, model.ErrDeliveryFailure)
}
