package moves

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mcoot/duelgame/internal/dependencies/clock"
	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/services/session"
)

// Request is a move as submitted by a client
type Request struct {
	SessionID model.SessionID
	From      model.Square
	To        model.Square
	Piece     string
	Role      model.Role
}

// Processor validates submitted moves and applies them in turn order.
// It checks structure and turn ownership only, not the rules of the game.
type Processor struct {
	sessions *session.Store
	clock    clock.Clock
	logger   *slog.Logger
}

// New creates a new move Processor
func New(sessions *session.Store, clock clock.Clock, logger *slog.Logger) *Processor {
	return &Processor{
		sessions: sessions,
		clock:    clock,
		logger:   logger.With(slog.String("component", "moves")),
	}
}

// Submit validates and applies one move. Checks run in a fixed order:
// session exists, session active, role on turn, then move shape.
// A rejected move leaves no trace.
func (p *Processor) Submit(ctx context.Context, req Request) (*model.Move, error) {
	var applied *model.Move
	err := p.sessions.Transact(ctx, req.SessionID, func(tx *session.Tx) error {
		current := tx.Session()
		if !current.IsActive() {
			return model.ErrSessionNotActive
		}
		if req.Role != current.CurrentTurn {
			return model.ErrTurnViolation
		}
		if !req.From.Valid() || !req.To.Valid() || strings.TrimSpace(req.Piece) == "" {
			return model.ErrMalformedMove
		}

		count, err := tx.MoveCount()
		if err != nil {
			return err
		}
		move := &model.Move{
			SessionID: req.SessionID,
			Number:    count + 1,
			From:      req.From,
			To:        req.To,
			Piece:     req.Piece,
			Role:      req.Role,
			Notation:  model.Notation(req.Piece, req.From, req.To),
			CreatedAt: p.clock.Now(),
		}
		if err := tx.AppendMove(move); err != nil {
			return err
		}
		applied = move
		return nil
	})
	if err != nil {
		p.logger.Info("move rejected",
			slog.Int64("session_id", int64(req.SessionID)),
			slog.String("role", string(req.Role)),
			slog.String("reason", string(model.KindOf(err))))
		return nil, err
	}

	p.logger.Info("move applied",
		slog.Int64("session_id", int64(applied.SessionID)),
		slog.Int("number", applied.Number),
		slog.String("notation", applied.Notation))
	return applied, nil
}
