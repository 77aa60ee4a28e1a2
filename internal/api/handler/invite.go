package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mcoot/duelgame/internal/api/middleware"
	"github.com/mcoot/duelgame/internal/api/request"
	"github.com/mcoot/duelgame/internal/api/response"
	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/services/gameplay"
)

// InviteHandler handles the invite handshake
type InviteHandler struct {
	controller *gameplay.Controller
}

// NewInviteHandler creates a new invite handler
func NewInviteHandler(controller *gameplay.Controller) *InviteHandler {
	return &InviteHandler{controller: controller}
}

// Propose handles POST /api/v1/invites
func (h *InviteHandler) Propose(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.ProposeInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if err := h.controller.Propose(r.Context(), identity.PlayerID, model.PlayerID(req.To)); err != nil {
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Respond handles POST /api/v1/invites/respond
func (h *InviteHandler) Respond(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.RespondInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Accept == nil {
		WriteError(w, NewInvalidRequestError("accept is required"))
		return
	}

	outcome, err := h.controller.Respond(r.Context(), identity.PlayerID, model.PlayerID(req.From), *req.Accept)
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := response.InviteResponse{Accepted: outcome.Accepted}
	if outcome.Session != nil {
		s := response.SessionFromModel(outcome.Session, identity.PlayerID)
		resp.Session = &s
		for _, id := range outcome.Undelivered {
			resp.Undelivered = append(resp.Undelivered, string(id))
		}
		response.JSON(w, http.StatusCreated, resp)
		return
	}
	response.JSON(w, http.StatusOK, resp)
}
