package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/services/auth"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"turn violation", fmt.Errorf("submit: %w", model.ErrTurnViolation), http.StatusForbidden, "TURN_VIOLATION"},
		{"session not found", model.ErrSessionNotFound, http.StatusNotFound, "SESSION_NOT_FOUND"},
		{"not active", model.ErrSessionNotActive, http.StatusConflict, "SESSION_NOT_ACTIVE"},
		{"malformed", model.ErrMalformedMove, http.StatusBadRequest, "MALFORMED_MOVE"},
		{"unknown player", fmt.Errorf("%w: zed", model.ErrUnknownPlayer), http.StatusNotFound, "UNKNOWN_PLAYER"},
		{"not participant", model.ErrNotParticipant, http.StatusForbidden, "NOT_PARTICIPANT"},
		{"bad token", fmt.Errorf("%w: expired", auth.ErrInvalidToken), http.StatusUnauthorized, CodeUnauthorized},
		{"invalid request", NewInvalidRequestError("nope"), http.StatusBadRequest, CodeInvalidRequest},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestInternalErrorsHideDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, errors.New("redis: connection refused at 10.0.0.3"))
	assert.NotContains(t, rr.Body.String(), "10.0.0.3")
}
