package fanout

import (
	"context"
	"log/slog"

	"github.com/mcoot/duelgame/internal/dependencies/clock"
	"github.com/mcoot/duelgame/internal/model"
)

// Broadcaster builds typed events and publishes them to the right channels
type Broadcaster struct {
	publisher Publisher
	clock     clock.Clock
	logger    *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(publisher Publisher, clk clock.Clock, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		publisher: publisher,
		clock:     clk,
		logger:    logger.With(slog.String("component", "broadcaster")),
	}
}

func (b *Broadcaster) publish(ctx context.Context, channel model.Channel, eventType model.EventType, payload any) error {
	err := b.publisher.Publish(ctx, channel, model.Event{
		Type:      eventType,
		Channel:   channel,
		Timestamp: b.clock.Now(),
		Payload:   payload,
	})
	if err != nil {
		b.logger.Warn("event delivery failed",
			slog.String("channel", string(channel)),
			slog.String("event", string(eventType)),
			slog.Any("error", err))
	}
	return err
}

// InviteProposed tells the invitee someone wants to play
func (b *Broadcaster) InviteProposed(ctx context.Context, from, to model.PlayerID) error {
	return b.publish(ctx, model.PlayerChannel(to), model.EventInviteProposed, model.InvitePayload{
		Type: model.InvitePropose,
		From: from,
		To:   to,
	})
}

// InviteDeclined tells the proposer the invite was declined
func (b *Broadcaster) InviteDeclined(ctx context.Context, from, to model.PlayerID) error {
	return b.publish(ctx, model.PlayerChannel(from), model.EventInviteDeclined, model.InvitePayload{
		Type: model.InviteDecline,
		From: from,
		To:   to,
	})
}

// InviteFailed tells the responder an accept could not start a session
func (b *Broadcaster) InviteFailed(ctx context.Context, from, to model.PlayerID, cause error) error {
	return b.publish(ctx, model.PlayerChannel(to), model.EventInviteFailed, model.InviteFailedPayload{
		From:   from,
		To:     to,
		Reason: model.KindOf(cause),
	})
}

// SessionStarted tells one participant a session began and which role they hold
func (b *Broadcaster) SessionStarted(ctx context.Context, session *model.Session, recipient model.PlayerID) error {
	payload := model.NewSessionPayload(session)
	payload.YourRole, _ = session.RoleOf(recipient)
	return b.publish(ctx, model.PlayerChannel(recipient), model.EventSessionStarted, payload)
}

// SessionUpdated publishes a session snapshot after a lifecycle change
func (b *Broadcaster) SessionUpdated(ctx context.Context, session *model.Session) error {
	return b.publish(ctx, model.SessionChannel(session.ID), model.EventSessionUpdated, model.NewSessionPayload(session))
}

// MoveApplied publishes an accepted move to everyone following the session
func (b *Broadcaster) MoveApplied(ctx context.Context, move *model.Move) error {
	return b.publish(ctx, model.SessionChannel(move.SessionID), model.EventMoveApplied, model.NewMovePayload(move))
}

// MoveRejected tells the submitter why their move was refused
func (b *Broadcaster) MoveRejected(ctx context.Context, sessionID model.SessionID, submitter model.PlayerID, cause error) error {
	return b.publish(ctx, model.PlayerChannel(submitter), model.EventMoveRejected, model.MoveRejectedPayload{
		SessionID: sessionID,
		Reason:    model.KindOf(cause),
		Message:   cause.Error(),
	})
}

// PresenceChanged publishes a full online-set snapshot
func (b *Broadcaster) PresenceChanged(ctx context.Context, snapshot model.PresencePayload) error {
	return b.publish(ctx, model.PresenceChannel, model.EventPresenceChanged, snapshot)
}

// PlayerJoined announces a participant following a session stream
func (b *Broadcaster) PlayerJoined(ctx context.Context, session *model.Session, playerID model.PlayerID) error {
	role, _ := session.RoleOf(playerID)
	return b.publish(ctx, model.SessionChannel(session.ID), model.EventPlayerJoined, model.PlayerJoinedPayload{
		SessionID: session.ID,
		PlayerID:  playerID,
		Role:      role,
	})
}
