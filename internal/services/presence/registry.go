package presence

import (
	"context"
	"log/slog"

	"github.com/mcoot/duelgame/internal/model"
)

// Notifier receives a snapshot after every presence change
type Notifier interface {
	PresenceChanged(ctx context.Context, snapshot model.PresencePayload) error
}

// Store holds the online set. With Redis storage it is shared by every
// server instance.
type Store interface {
	SetPresence(ctx context.Context, playerID model.PlayerID, online bool) ([]model.PlayerID, uint64, error)
	ListPresence(ctx context.Context) ([]model.PlayerID, error)
	IsPresent(ctx context.Context, playerID model.PlayerID) (bool, error)
}

// Registry tracks which players are currently reachable
type Registry struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
}

// New creates a new presence Registry
func New(store Store, notifier Notifier, logger *slog.Logger) *Registry {
	return &Registry{
		store:    store,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "presence")),
	}
}

// SetOnline records the player's flag and publishes the resulting online set.
// Repeating the current flag still publishes a snapshot.
func (r *Registry) SetOnline(ctx context.Context, playerID model.PlayerID, online bool) {
	ids, version, err := r.store.SetPresence(ctx, playerID, online)
	if err != nil {
		r.logger.Error("failed to record presence",
			slog.String("player_id", string(playerID)),
			slog.Bool("online", online),
			slog.String("error", err.Error()))
		return
	}
	snapshot := model.PresencePayload{
		Online:   ids,
		Player:   playerID,
		IsOnline: online,
		Version:  version,
	}

	r.logger.Debug("presence changed",
		slog.String("player_id", string(playerID)),
		slog.Bool("online", online),
		slog.Int("online_count", len(snapshot.Online)))

	// Version lets subscribers order snapshots that arrive out of order
	if err := r.notifier.PresenceChanged(ctx, snapshot); err != nil {
		r.logger.Warn("presence snapshot not delivered",
			slog.Uint64("version", snapshot.Version),
			slog.String("error", err.Error()))
	}
}

// ListOnline returns the currently online players in sorted order.
// A storage failure is logged and reported as nobody online.
func (r *Registry) ListOnline(ctx context.Context) []model.PlayerID {
	ids, err := r.store.ListPresence(ctx)
	if err != nil {
		r.logger.Error("failed to list presence", slog.String("error", err.Error()))
		return []model.PlayerID{}
	}
	return ids
}

// IsOnline reports whether the player is currently online
func (r *Registry) IsOnline(ctx context.Context, playerID model.PlayerID) bool {
	online, err := r.store.IsPresent(ctx, playerID)
	if err != nil {
		r.logger.Error("failed to read presence",
			slog.String("player_id", string(playerID)),
			slog.String("error", err.Error()))
		return false
	}
	return online
}
