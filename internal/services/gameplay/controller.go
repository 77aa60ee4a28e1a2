// Package gameplay authorises player actions against sessions and broadcasts their results.
// The HTTP API and the websocket transport both act through it.
package gameplay

import (
	"context"
	"log/slog"

	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/services/invite"
	"github.com/mcoot/duelgame/internal/services/moves"
	"github.com/mcoot/duelgame/internal/services/session"
)

// Notifier publishes the events produced by player actions
type Notifier interface {
	SessionUpdated(ctx context.Context, session *model.Session) error
	MoveApplied(ctx context.Context, move *model.Move) error
	MoveRejected(ctx context.Context, sessionID model.SessionID, submitter model.PlayerID, cause error) error
	PlayerJoined(ctx context.Context, session *model.Session, playerID model.PlayerID) error
}

// MoveInput is a move as typed by a player; the role comes from the player's seat
type MoveInput struct {
	From  model.Square
	To    model.Square
	Piece string
}

// Controller runs player-initiated actions
type Controller struct {
	sessions *session.Store
	moves    *moves.Processor
	invites  *invite.Coordinator
	notifier Notifier
	logger   *slog.Logger
}

// NewController creates a new gameplay Controller
func NewController(
	sessions *session.Store,
	moves *moves.Processor,
	invites *invite.Coordinator,
	notifier Notifier,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		sessions: sessions,
		moves:    moves,
		invites:  invites,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "gameplay")),
	}
}

// seat loads the session and returns the caller's role in it
func (c *Controller) seat(ctx context.Context, caller model.PlayerID, id model.SessionID) (*model.Session, model.Role, error) {
	s, err := c.sessions.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	role, ok := s.RoleOf(caller)
	if !ok {
		return nil, "", model.ErrNotParticipant
	}
	return s, role, nil
}

// Seat returns the caller's role in the session, or ErrNotParticipant
func (c *Controller) Seat(ctx context.Context, caller model.PlayerID, id model.SessionID) (model.Role, error) {
	_, role, err := c.seat(ctx, caller, id)
	return role, err
}

// SubmitMove applies a move for the caller. On success move-applied goes to the
// session channel; on any rejection move-rejected goes to the caller only, once.
func (c *Controller) SubmitMove(ctx context.Context, caller model.PlayerID, id model.SessionID, in MoveInput) (*model.Move, error) {
	move, err := c.submit(ctx, caller, id, in)
	if err != nil {
		_ = c.notifier.MoveRejected(ctx, id, caller, err)
		return nil, err
	}
	_ = c.notifier.MoveApplied(ctx, move)
	return move, nil
}

func (c *Controller) submit(ctx context.Context, caller model.PlayerID, id model.SessionID, in MoveInput) (*model.Move, error) {
	_, role, err := c.seat(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return c.moves.Submit(ctx, moves.Request{
		SessionID: id,
		From:      in.From,
		To:        in.To,
		Piece:     in.Piece,
		Role:      role,
	})
}

// Propose sends an invite from the caller
func (c *Controller) Propose(ctx context.Context, caller, to model.PlayerID) error {
	return c.invites.Propose(ctx, caller, to)
}

// Respond settles an invite the caller received from proposer
func (c *Controller) Respond(ctx context.Context, caller, proposer model.PlayerID, accept bool) (*invite.Outcome, error) {
	return c.invites.Respond(ctx, proposer, caller, accept)
}

// Finish ends the session for both participants
func (c *Controller) Finish(ctx context.Context, caller model.PlayerID, id model.SessionID) (*model.Session, error) {
	return c.transition(ctx, caller, id, "finished", c.sessions.Finish)
}

// Pause suspends move processing
func (c *Controller) Pause(ctx context.Context, caller model.PlayerID, id model.SessionID) (*model.Session, error) {
	return c.transition(ctx, caller, id, "paused", c.sessions.Pause)
}

// Resume reactivates a paused session
func (c *Controller) Resume(ctx context.Context, caller model.PlayerID, id model.SessionID) (*model.Session, error) {
	return c.transition(ctx, caller, id, "resumed", c.sessions.Resume)
}

func (c *Controller) transition(
	ctx context.Context,
	caller model.PlayerID,
	id model.SessionID,
	verb string,
	apply func(context.Context, model.SessionID) (*model.Session, error),
) (*model.Session, error) {
	if _, _, err := c.seat(ctx, caller, id); err != nil {
		return nil, err
	}
	s, err := apply(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = c.notifier.SessionUpdated(ctx, s)
	c.logger.Info("session "+verb,
		slog.Int64("session_id", int64(id)),
		slog.String("player_id", string(caller)))
	return s, nil
}

// Join announces the caller on the session channel and returns the session.
// Only participants may join.
func (c *Controller) Join(ctx context.Context, caller model.PlayerID, id model.SessionID) (*model.Session, error) {
	s, _, err := c.seat(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	_ = c.notifier.PlayerJoined(ctx, s, caller)
	return s, nil
}
