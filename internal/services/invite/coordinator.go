package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/duelgame/internal/model"
)

// Directory resolves player identities
type Directory interface {
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
}

// SessionCreator starts a session between two players
type SessionCreator interface {
	Create(ctx context.Context, first, second model.PlayerID) (*model.Session, error)
}

// Notifier delivers handshake events to players
type Notifier interface {
	InviteProposed(ctx context.Context, from, to model.PlayerID) error
	InviteDeclined(ctx context.Context, from, to model.PlayerID) error
	InviteFailed(ctx context.Context, from, to model.PlayerID, cause error) error
	SessionStarted(ctx context.Context, session *model.Session, recipient model.PlayerID) error
}

// Outcome is the result of a response to an invite
type Outcome struct {
	Accepted bool
	Session  *model.Session // nil on decline
	// Undelivered lists participants whose session-started event could not be queued
	Undelivered []model.PlayerID
}

// Coordinator runs the propose and accept-or-decline handshake.
// Invites are never stored; a response does not need a matching proposal.
type Coordinator struct {
	directory Directory
	sessions  SessionCreator
	notifier  Notifier
	logger    *slog.Logger
}

// New creates a new invite Coordinator
func New(directory Directory, sessions SessionCreator, notifier Notifier, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		directory: directory,
		sessions:  sessions,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "invites")),
	}
}

func validPair(from, to model.PlayerID) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("%w: %w", model.ErrInvalidInvite, model.ErrInvalidIdentity)
	}
	if from == to {
		return fmt.Errorf("%w: cannot invite yourself", model.ErrInvalidInvite)
	}
	return nil
}

// Propose notifies to that from wants to play. The invitee need not be online.
func (c *Coordinator) Propose(ctx context.Context, from, to model.PlayerID) error {
	if err := validPair(from, to); err != nil {
		c.logger.Warn("invite rejected",
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			slog.String("error", err.Error()))
		return err
	}

	// Delivery is best effort; the broadcaster has already logged a failure
	_ = c.notifier.InviteProposed(ctx, from, to)

	c.logger.Info("invite proposed",
		slog.String("from", string(from)),
		slog.String("to", string(to)))
	return nil
}

// Respond settles an invite from the proposer (from) to the responder (to).
// Accepting starts a session with the proposer as WHITE. On accept a
// malformed id is reported like any other player that does not exist.
func (c *Coordinator) Respond(ctx context.Context, from, to model.PlayerID, accept bool) (*Outcome, error) {
	err := validPair(from, to)
	if accept && errors.Is(err, model.ErrInvalidIdentity) {
		err = nil
	}
	if err != nil {
		c.logger.Warn("invite response rejected",
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			slog.String("error", err.Error()))
		return nil, err
	}

	if !accept {
		_ = c.notifier.InviteDeclined(ctx, from, to)
		c.logger.Info("invite declined",
			slog.String("from", string(from)),
			slog.String("to", string(to)))
		return &Outcome{Accepted: false}, nil
	}

	for _, id := range []model.PlayerID{from, to} {
		if err := c.lookup(ctx, id); err != nil {
			if !errors.Is(err, model.ErrPlayerNotFound) {
				return nil, err
			}
			cause := fmt.Errorf("%w: %s", model.ErrUnknownPlayer, id)
			_ = c.notifier.InviteFailed(ctx, from, to, cause)
			c.logger.Warn("invite accept failed",
				slog.String("from", string(from)),
				slog.String("to", string(to)),
				slog.String("unknown_player", string(id)))
			return nil, cause
		}
	}

	session, err := c.sessions.Create(ctx, from, to)
	if err != nil {
		return nil, err
	}

	// Each participant is notified on its own; one failure never blocks the other
	outcome := &Outcome{Accepted: true, Session: session}
	for _, recipient := range session.Participants() {
		if err := c.notifier.SessionStarted(ctx, session, recipient); err != nil {
			outcome.Undelivered = append(outcome.Undelivered, recipient)
		}
	}

	c.logger.Info("invite accepted",
		slog.Int64("session_id", int64(session.ID)),
		slog.String("white", string(from)),
		slog.String("black", string(to)),
		slog.Int("undelivered", len(outcome.Undelivered)))
	return outcome, nil
}

// lookup checks the player exists; a malformed id never does
func (c *Coordinator) lookup(ctx context.Context, id model.PlayerID) error {
	if !id.Valid() {
		return model.ErrPlayerNotFound
	}
	_, err := c.directory.GetPlayer(ctx, id)
	return err
}
