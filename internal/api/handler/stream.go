package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mcoot/duelgame/internal/api/middleware"
	"github.com/mcoot/duelgame/internal/transport"
	"github.com/mcoot/duelgame/internal/transport/sse"
	"github.com/mcoot/duelgame/internal/transport/ws"
)

// StreamHandler opens event streams for the caller
type StreamHandler struct {
	streams *transport.Streams
	ws      *ws.Handler
	logger  *slog.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(streams *transport.Streams, wsHandler *ws.Handler, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		streams: streams,
		ws:      wsHandler,
		logger:  logger,
	}
}

// Events handles GET /api/v1/events (server-sent events)
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	sub, err := h.streams.Open(r.Context(), identity.PlayerID)
	if err != nil {
		WriteError(w, err)
		return
	}
	defer h.streams.Release(context.WithoutCancel(r.Context()), sub)

	sse.Serve(w, r, h.streams.Broker(), sub, h.logger)
}

// WebSocket handles GET /api/v1/ws
func (h *StreamHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	if err := h.ws.Serve(w, r, identity.PlayerID); err != nil {
		WriteError(w, err)
	}
}
