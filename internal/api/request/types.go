package request

// LoginRequest is the request body for logging in.
// Credentials are checked upstream; the server trusts the player id.
type LoginRequest struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// SetPresenceRequest is the request body for changing the caller's online flag
type SetPresenceRequest struct {
	Online *bool `json:"online"`
}

// ProposeInviteRequest is the request body for inviting a player
type ProposeInviteRequest struct {
	To string `json:"to"`
}

// RespondInviteRequest is the request body for answering an invite
type RespondInviteRequest struct {
	From   string `json:"from"`
	Accept *bool  `json:"accept"`
}

// SubmitMoveRequest is the request body for submitting a move
type SubmitMoveRequest struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Piece string `json:"piece"`
}
