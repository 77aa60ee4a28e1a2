package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/duelgame/internal/api/middleware"
	"github.com/mcoot/duelgame/internal/api/request"
	"github.com/mcoot/duelgame/internal/api/response"
	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/services/gameplay"
	"github.com/mcoot/duelgame/internal/services/session"
)

// SessionHandler handles session and move endpoints
type SessionHandler struct {
	sessions   *session.Store
	controller *gameplay.Controller
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *session.Store, controller *gameplay.Controller) *SessionHandler {
	return &SessionHandler{
		sessions:   sessions,
		controller: controller,
	}
}

// List handles GET /api/v1/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	sessions, err := h.sessions.ListFor(r.Context(), identity.PlayerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SessionsFromModel(sessions, identity.PlayerID))
}

// Active handles GET /api/v1/sessions/active
func (h *SessionHandler) Active(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	s, err := h.sessions.FindActiveFor(r.Context(), identity.PlayerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SessionFromModel(s, identity.PlayerID))
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	id, err := sessionIDFrom(mux.Vars(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SessionFromModel(s, identity.PlayerID))
}

// ListMoves handles GET /api/v1/sessions/{id}/moves
func (h *SessionHandler) ListMoves(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDFrom(mux.Vars(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	moves, err := h.sessions.ListMoves(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MovesFromModel(moves))
}

// SubmitMove handles POST /api/v1/sessions/{id}/moves
func (h *SessionHandler) SubmitMove(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	id, err := sessionIDFrom(mux.Vars(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.SubmitMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	move, err := h.controller.SubmitMove(r.Context(), identity.PlayerID, id, gameplay.MoveInput{
		From:  model.Square(req.From),
		To:    model.Square(req.To),
		Piece: req.Piece,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.MoveFromModel(move))
}

// Finish handles POST /api/v1/sessions/{id}/finish
func (h *SessionHandler) Finish(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.controller.Finish)
}

// Pause handles POST /api/v1/sessions/{id}/pause
func (h *SessionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.controller.Pause)
}

// Resume handles POST /api/v1/sessions/{id}/resume
func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.controller.Resume)
}

func (h *SessionHandler) lifecycle(
	w http.ResponseWriter,
	r *http.Request,
	apply func(context.Context, model.PlayerID, model.SessionID) (*model.Session, error),
) {
	identity := middleware.MustGetIdentity(r.Context())

	id, err := sessionIDFrom(mux.Vars(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	s, err := apply(r.Context(), identity.PlayerID, id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SessionFromModel(s, identity.PlayerID))
}

// sessionIDFrom parses the {id} path variable; a bad id reads as a missing session
func sessionIDFrom(vars map[string]string) (model.SessionID, error) {
	return model.ParseSessionID(vars["id"])
}
