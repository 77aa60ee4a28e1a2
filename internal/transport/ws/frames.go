package ws

import (
	"encoding/json"
	"errors"

	"github.com/mcoot/duelgame/internal/model"
)

// Inbound frame types
const (
	FrameInvite         = "invite"
	FrameInviteResponse = "invite-response"
	FrameMove           = "move"
	FrameJoinSession    = "join-session"
	FrameLeaveSession   = "leave-session"
)

// Outbound reply types. Events are written as model.Event.
const (
	FrameOK    = "ok"
	FrameError = "error"
)

// KindBadFrame is reported for frames that are not valid actions
const KindBadFrame model.ErrorKind = "BAD_FRAME"

// Inbound is a client action
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// InviteData is the data of an invite frame
type InviteData struct {
	To model.PlayerID `json:"to"`
}

// InviteResponseData is the data of an invite-response frame
type InviteResponseData struct {
	From   model.PlayerID `json:"from"`
	Accept bool           `json:"accept"`
}

// MoveData is the data of a move frame
type MoveData struct {
	SessionID model.SessionID `json:"session_id"`
	From      model.Square    `json:"from"`
	To        model.Square    `json:"to"`
	Piece     string          `json:"piece"`
}

// SessionData is the data of join-session and leave-session frames
type SessionData struct {
	SessionID model.SessionID `json:"session_id"`
}

// Reply answers one inbound frame. It has the same shape as an event so clients can
// dispatch on type alone.
type Reply struct {
	Type    string       `json:"type"`
	Payload ReplyPayload `json:"payload"`
}

// ReplyPayload carries the outcome of the action named by Request
type ReplyPayload struct {
	Request string          `json:"request"`
	Code    model.ErrorKind `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Result  any             `json:"result,omitempty"`
}

func okReply(request string, result any) Reply {
	return Reply{Type: FrameOK, Payload: ReplyPayload{Request: request, Result: result}}
}

func errorReply(request string, err error) Reply {
	code := model.KindOf(err)
	if errors.Is(err, errBadFrame) {
		code = KindBadFrame
	}
	return Reply{Type: FrameError, Payload: ReplyPayload{
		Request: request,
		Code:    code,
		Message: err.Error(),
	}}
}
