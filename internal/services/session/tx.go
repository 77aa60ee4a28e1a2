package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/storage"
)

// Tx is the view of one session while its lock is held. Only valid inside Transact.
type Tx struct {
	ctx       context.Context
	store     *Store
	session   *model.Session
	moveCount int // -1 until loaded
}

// Session returns a copy of the session as of this point in the transaction
func (tx *Tx) Session() *model.Session {
	cp := *tx.session
	return &cp
}

// MoveCount returns how many moves the session has accepted
func (tx *Tx) MoveCount() (int, error) {
	if tx.moveCount < 0 {
		n, err := tx.store.storage.CountMoves(tx.ctx, tx.session.ID)
		if err != nil {
			return 0, err
		}
		tx.moveCount = n
	}
	return tx.moveCount, nil
}

// AppendMove persists the move and hands the turn to the other role.
// The session must be ACTIVE, the move must belong to the role on turn
// and must carry the next sequence number.
func (tx *Tx) AppendMove(move *model.Move) error {
	session := tx.session
	if !session.IsActive() {
		return model.ErrSessionNotActive
	}
	if move.Role != session.CurrentTurn {
		return model.ErrTurnViolation
	}
	count, err := tx.MoveCount()
	if err != nil {
		return err
	}
	if move.Number != count+1 {
		return fmt.Errorf("%w: move %d, expected %d", model.ErrMalformedMove, move.Number, count+1)
	}
	move.SessionID = session.ID

	next := *session
	next.CurrentTurn = session.CurrentTurn.Opponent()
	next.UpdatedAt = tx.store.clock.Now()

	if err := tx.store.storage.SaveMove(tx.ctx, &next, move); err != nil {
		if errors.Is(err, storage.ErrStaleSession) {
			return err
		}
		tx.store.logger.Error("failed to save move",
			slog.Int64("session_id", int64(session.ID)),
			slog.Int("number", move.Number),
			slog.String("error", err.Error()))
		return err
	}

	*session = next
	tx.moveCount = count + 1

	tx.store.logger.Debug("move appended",
		slog.Int64("session_id", int64(session.ID)),
		slog.Int("number", move.Number),
		slog.String("role", string(move.Role)),
		slog.String("notation", move.Notation))
	return nil
}
