package model

// InviteType tags a handshake message
type InviteType string

const (
	InvitePropose InviteType = "PROPOSE"
	InviteAccept  InviteType = "ACCEPT"
	InviteDecline InviteType = "DECLINE"
)

// InviteRequest is an in-flight handshake message. It is never persisted.
type InviteRequest struct {
	Type      InviteType
	From      PlayerID   // the proposer
	To        PlayerID   // the invitee
	SessionID *SessionID // set once an accept created a session
}
