package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case AuthResult:
		o.printAuthResult(v)
	case Presence:
		o.printPresence(v)
	case Session:
		o.printSession(v)
	case []Session:
		o.printSessions(v)
	case Move:
		o.printMove(v)
	case []Move:
		o.printMoves(v)
	case InviteResult:
		o.printInviteResult(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Online      bool   `json:"online"`
}

// AuthResult combines player and token
type AuthResult struct {
	Player    Player    `json:"player"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Presence lists online players
type Presence struct {
	Online []string `json:"online"`
}

// Session response type
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

// Move response type
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

// InviteResult is the answer to accept/decline
type InviteResult struct {
	Accepted    bool     `json:"accepted"`
	Session     *Session `json:"session,omitempty"`
	Undelivered []string `json:"undelivered,omitempty"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printPlayer(p Player) {
	onlineStr := "no"
	if p.Online {
		onlineStr = "yes"
	}
	fmt.Printf("Player: %s (%s)\n", p.DisplayName, p.ID)
	fmt.Printf("Online: %s\n", onlineStr)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printPlayer(a.Player)
	fmt.Printf("Token: %s\n", a.Token)
	fmt.Printf("Expires: %s\n", a.ExpiresAt.Format(time.RFC3339))
}

func (o *Output) printPresence(p Presence) {
	if len(p.Online) == 0 {
		fmt.Println("Nobody online")
		return
	}
	fmt.Printf("Online (%d): %s\n", len(p.Online), strings.Join(p.Online, ", "))
}

func (o *Output) printSession(s Session) {
	fmt.Printf("Session: %d\n", s.ID)
	fmt.Printf("Status: %s\n", s.Status)
	fmt.Printf("White: %s\n", s.White)
	fmt.Printf("Black: %s\n", s.Black)
	if s.Status == "ACTIVE" {
		fmt.Printf("To move: %s\n", s.CurrentTurn)
	}
	if s.YourRole != "" {
		fmt.Printf("You play: %s\n", s.YourRole)
	}
}

func (o *Output) printSessions(sessions []Session) {
	if len(sessions) == 0 {
		fmt.Println("No sessions")
		return
	}
	for _, s := range sessions {
		fmt.Printf("  %d  %-8s %s vs %s\n", s.ID, s.Status, s.White, s.Black)
	}
}

func (o *Output) printMove(m Move) {
	fmt.Printf("%d. %s (%s)\n", m.Number, m.Notation, m.Role)
}

func (o *Output) printMoves(moves []Move) {
	if len(moves) == 0 {
		fmt.Println("No moves yet")
		return
	}
	for _, m := range moves {
		o.printMove(m)
	}
}

func (o *Output) printInviteResult(r InviteResult) {
	if !r.Accepted {
		fmt.Println("Invite declined")
		return
	}
	if r.Session != nil {
		fmt.Println("Invite accepted")
		o.printSession(*r.Session)
	}
	if len(r.Undelivered) > 0 {
		fmt.Printf("Not notified: %s\n", strings.Join(r.Undelivered, ", "))
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
