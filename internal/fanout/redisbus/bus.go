// Package redisbus relays fanout events between server instances over Redis pub/sub.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/duelgame/internal/fanout"
	"github.com/mcoot/duelgame/internal/model"
)

// Key prefix for event channels, matching the storage key prefix
const channelPrefix = "duel:events:"

func redisChannel(ch model.Channel) string {
	return channelPrefix + string(ch)
}

// Bus publishes through Redis and relays everything it hears into the local broker,
// so a subscriber on any instance sees events published on every instance
type Bus struct {
	client *redis.Client
	local  *fanout.Broker
	logger *slog.Logger
}

// New creates a new Bus
func New(client *redis.Client, local *fanout.Broker, logger *slog.Logger) *Bus {
	return &Bus{
		client: client,
		local:  local,
		logger: logger.With(slog.String("component", "redisbus")),
	}
}

var _ fanout.Publisher = (*Bus)(nil)

// Publish sends the event to every instance, this one included
func (b *Bus) Publish(ctx context.Context, channel model.Channel, event model.Event) error {
	event.Channel = channel
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, redisChannel(channel), data).Err(); err != nil {
		return fmt.Errorf("%w: %v", model.ErrDeliveryFailure, err)
	}
	return nil
}

// Listen subscribes to every event channel and waits for Redis to confirm
func (b *Bus) Listen(ctx context.Context) (*redis.PubSub, error) {
	ps := b.client.PSubscribe(ctx, channelPrefix+"*")
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	return ps, nil
}

// Relay forwards messages from ps into the local broker until ctx is done
func (b *Bus) Relay(ctx context.Context, ps *redis.PubSub) {
	defer func() { _ = ps.Close() }()

	messages := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			b.relay(ctx, msg)
		}
	}
}

// Run listens and relays until ctx is done
func (b *Bus) Run(ctx context.Context) error {
	ps, err := b.Listen(ctx)
	if err != nil {
		return err
	}
	b.logger.Info("redisbus listening", slog.String("pattern", channelPrefix+"*"))
	b.Relay(ctx, ps)
	return nil
}

func (b *Bus) relay(ctx context.Context, msg *redis.Message) {
	event, err := decodeEvent([]byte(msg.Payload))
	if err != nil {
		b.logger.Warn("redisbus dropped undecodable event",
			slog.String("redis_channel", msg.Channel),
			slog.Any("error", err))
		return
	}
	channel := model.Channel(strings.TrimPrefix(msg.Channel, channelPrefix))
	if err := b.local.Publish(ctx, channel, event); err != nil {
		b.logger.Warn("redisbus local delivery failed",
			slog.String("channel", string(channel)),
			slog.Any("error", err))
	}
}

type wireEvent struct {
	model.Event
	Payload json.RawMessage `json:"payload"`
}

// decodeEvent restores the typed payload so local subscribers see the same
// values they would have without the bus
func decodeEvent(data []byte) (model.Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return model.Event{}, err
	}
	event := w.Event

	var err error
	switch event.Type {
	case model.EventInviteProposed, model.EventInviteDeclined:
		event.Payload, err = decodePayload[model.InvitePayload](w.Payload)
	case model.EventInviteFailed:
		event.Payload, err = decodePayload[model.InviteFailedPayload](w.Payload)
	case model.EventSessionStarted, model.EventSessionUpdated:
		event.Payload, err = decodePayload[model.SessionPayload](w.Payload)
	case model.EventMoveApplied:
		event.Payload, err = decodePayload[model.MovePayload](w.Payload)
	case model.EventMoveRejected:
		event.Payload, err = decodePayload[model.MoveRejectedPayload](w.Payload)
	case model.EventPresenceChanged:
		event.Payload, err = decodePayload[model.PresencePayload](w.Payload)
	case model.EventPlayerJoined:
		event.Payload, err = decodePayload[model.PlayerJoinedPayload](w.Payload)
	default:
		event.Payload = w.Payload
	}
	return event, err
}

func decodePayload[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}
