package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Square identifies a board cell by file and rank, e.g. "e4"
type Square string

// Valid reports whether the square is a two-character file/rank pair
func (s Square) Valid() bool {
	if len(s) != 2 {
		return false
	}
	return s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}

// Move is one accepted move in a session. Immutable once created.
type Move struct {
	SessionID SessionID
	Number    int // 1-based, no gaps within a session
	From      Square
	To        Square
	Piece     string
	Role      Role
	Notation  string
	CreatedAt time.Time
}

// Notation derives the placeholder move notation: the piece's first character
// as given (leading whitespace included), origin, dash, destination.
// It is not standard algebraic notation.
func Notation(piece string, from, to Square) string {
	initial, _ := utf8.DecodeRuneInString(piece)
	var b strings.Builder
	if initial != utf8.RuneError {
		b.WriteRune(initial)
	}
	b.WriteString(string(from))
	b.WriteByte('-')
	b.WriteString(string(to))
	return b.String()
}
