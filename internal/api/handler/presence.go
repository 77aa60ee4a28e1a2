package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mcoot/duelgame/internal/api/middleware"
	"github.com/mcoot/duelgame/internal/api/request"
	"github.com/mcoot/duelgame/internal/api/response"
	"github.com/mcoot/duelgame/internal/services/presence"
)

// PresenceHandler handles online-set endpoints
type PresenceHandler struct {
	registry *presence.Registry
}

// NewPresenceHandler creates a new presence handler
func NewPresenceHandler(registry *presence.Registry) *PresenceHandler {
	return &PresenceHandler{registry: registry}
}

// List handles GET /api/v1/presence
func (h *PresenceHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.PresenceFromIDs(h.registry.ListOnline(r.Context())))
}

// Set handles PUT /api/v1/presence
func (h *PresenceHandler) Set(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.SetPresenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Online == nil {
		WriteError(w, NewInvalidRequestError("online is required"))
		return
	}

	h.registry.SetOnline(r.Context(), identity.PlayerID, *req.Online)
	response.JSON(w, http.StatusOK, response.PresenceFromIDs(h.registry.ListOnline(r.Context())))
}
