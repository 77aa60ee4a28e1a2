package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mcoot/duelgame/internal/api/middleware"
	"github.com/mcoot/duelgame/internal/api/request"
	"github.com/mcoot/duelgame/internal/api/response"
	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/services/auth"
	"github.com/mcoot/duelgame/internal/services/presence"
	"github.com/mcoot/duelgame/internal/storage"
)

// PlayerHandler handles player-related endpoints
type PlayerHandler struct {
	authService *auth.Service
	storage     storage.Storage
	presence    *presence.Registry
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(authService *auth.Service, storage storage.Storage, presence *presence.Registry) *PlayerHandler {
	return &PlayerHandler{
		authService: authService,
		storage:     storage,
		presence:    presence,
	}
}

// Login handles POST /api/v1/players/login
func (h *PlayerHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.PlayerID == "" {
		WriteError(w, NewInvalidRequestError("player_id is required"))
		return
	}

	session, err := h.authService.Login(r.Context(), model.PlayerID(req.PlayerID), req.DisplayName)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromSession(session))
}

// Logout handles POST /api/v1/players/logout
func (h *PlayerHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	if err := h.authService.Logout(r.Context(), identity); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// GetMe handles GET /api/v1/players/me
func (h *PlayerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	player, err := h.storage.GetPlayer(r.Context(), identity.PlayerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(player, h.presence.IsOnline(r.Context(), player.ID)))
}
