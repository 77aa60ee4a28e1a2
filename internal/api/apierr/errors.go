package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Error codes not raised by the domain model
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeInternalError  = string(model.KindInternal)
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// Status for each domain error kind; the code is the kind itself
var kindStatus = map[model.ErrorKind]int{
	model.KindUnknownPlayer:     http.StatusNotFound,
	model.KindPlayerNotFound:    http.StatusNotFound,
	model.KindInvalidIdentity:   http.StatusBadRequest,
	model.KindSessionNotFound:   http.StatusNotFound,
	model.KindSessionNotActive:  http.StatusConflict,
	model.KindNoActiveSession:   http.StatusNotFound,
	model.KindNotParticipant:    http.StatusForbidden,
	model.KindInvalidTransition: http.StatusConflict,
	model.KindTurnViolation:     http.StatusForbidden,
	model.KindMalformedMove:     http.StatusBadRequest,
	model.KindInvalidInvite:     http.StatusBadRequest,
	model.KindDeliveryFailure:   http.StatusServiceUnavailable,
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	if errors.Is(err, auth.ErrInvalidToken) {
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired token"}}
	}

	kind := model.KindOf(err)
	if status, ok := kindStatus[kind]; ok {
		return &httpError{status, APIError{string(kind), err.Error()}}
	}
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
