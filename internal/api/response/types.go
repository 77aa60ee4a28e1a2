package response

import (
	"time"

	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/services/auth"
)

// Player represents a player in API responses
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Online      bool   `json:"online"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player, online bool) Player {
	return Player{
		ID:          string(p.ID),
		DisplayName: p.DisplayName,
		Online:      online,
	}
}

// AuthResponse is the response for the login endpoint
type AuthResponse struct {
	Player    Player    `json:"player"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a login
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Player:    PlayerFromModel(&s.Player, true),
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
	}
}

// Presence lists the players currently online
type Presence struct {
	Online []string `json:"online"`
}

// PresenceFromIDs converts an online set
func PresenceFromIDs(ids []model.PlayerID) Presence {
	online := make([]string, len(ids))
	for i, id := range ids {
		online[i] = string(id)
	}
	return Presence{Online: online}
}

// Session represents a session in API responses
type Session struct {
	ID          int64     `json:"id"`
	White       string    `json:"white"`
	Black       string    `json:"black"`
	Status      string    `json:"status"`
	CurrentTurn string    `json:"current_turn"`
	YourRole    string    `json:"your_role,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SessionFromModel converts model.Session; viewer decides your_role
func SessionFromModel(s *model.Session, viewer model.PlayerID) Session {
	role, _ := s.RoleOf(viewer)
	return Session{
		ID:          int64(s.ID),
		White:       string(s.White),
		Black:       string(s.Black),
		Status:      string(s.Status),
		CurrentTurn: string(s.CurrentTurn),
		YourRole:    string(role),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// SessionsFromModel converts a list of sessions
func SessionsFromModel(sessions []*model.Session, viewer model.PlayerID) []Session {
	out := make([]Session, len(sessions))
	for i, s := range sessions {
		out[i] = SessionFromModel(s, viewer)
	}
	return out
}

// Move represents an accepted move
type Move struct {
	SessionID int64     `json:"session_id"`
	Number    int       `json:"number"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Piece     string    `json:"piece"`
	Role      string    `json:"role"`
	Notation  string    `json:"notation"`
	CreatedAt time.Time `json:"created_at"`
}

// MoveFromModel converts model.Move
func MoveFromModel(m *model.Move) Move {
	return Move{
		SessionID: int64(m.SessionID),
		Number:    m.Number,
		From:      string(m.From),
		To:        string(m.To),
		Piece:     m.Piece,
		Role:      string(m.Role),
		Notation:  m.Notation,
		CreatedAt: m.CreatedAt,
	}
}

// MovesFromModel converts a move list
func MovesFromModel(moves []*model.Move) []Move {
	out := make([]Move, len(moves))
	for i, m := range moves {
		out[i] = MoveFromModel(m)
	}
	return out
}

// InviteResponse is the result of answering an invite
type InviteResponse struct {
	Accepted    bool     `json:"accepted"`
	Session     *Session `json:"session,omitempty"`
	Undelivered []string `json:"undelivered,omitempty"`
}
