package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSquareValid(t *testing.T) {
	tests := []struct {
		square Square
		valid  bool
	}{
		{"e2", true},
		{"a1", true},
		{"h8", true},
		{"i1", false},
		{"a9", false},
		{"a0", false},
		{"E2", false},
		{"e", false},
		{"e22", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.square), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.square.Valid())
		})
	}
}

func TestNotation(t *testing.T) {
	assert.Equal(t, "Pe2-e4", Notation("Pawn", "e2", "e4"))
	assert.Equal(t, "Ng1-f3", Notation("N", "g1", "f3"))
	assert.Equal(t, "♞g1-f3", Notation("♞knight", "g1", "f3"))
	assert.Equal(t, " e2-e4", Notation(" Pawn", "e2", "e4"))
	assert.Equal(t, "e2-e4", Notation("", "e2", "e4"))
}

func TestNotationShape(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		file := rapid.SampledFrom([]byte("abcdefgh"))
		rank := rapid.SampledFrom([]byte("12345678"))
		from := Square([]byte{file.Draw(t, "fromFile"), rank.Draw(t, "fromRank")})
		to := Square([]byte{file.Draw(t, "toFile"), rank.Draw(t, "toRank")})
		piece := rapid.StringMatching(`[A-Za-z][a-z]{0,6}`).Draw(t, "piece")

		got := Notation(piece, from, to)
		want := fmt.Sprintf("%c%s-%s", piece[0], from, to)
		if got != want {
			t.Fatalf("Notation(%q, %q, %q) = %q, want %q", piece, from, to, got, want)
		}
	})
}

func TestRoleOpponent(t *testing.T) {
	assert.Equal(t, RoleBlack, RoleWhite.Opponent())
	assert.Equal(t, RoleWhite, RoleBlack.Opponent())
	assert.True(t, RoleWhite.Valid())
	assert.False(t, Role("RED").Valid())
}

func TestSessionRoles(t *testing.T) {
	s := &Session{ID: 1, White: "alice", Black: "bob", Status: SessionStatusActive, CurrentTurn: RoleWhite}

	role, ok := s.RoleOf("bob")
	assert.True(t, ok)
	assert.Equal(t, RoleBlack, role)

	_, ok = s.RoleOf("carol")
	assert.False(t, ok)

	assert.Equal(t, PlayerID("alice"), s.CurrentPlayer())
	assert.Equal(t, []PlayerID{"alice", "bob"}, s.Participants())
	assert.True(t, s.IsActive())
}

func TestPlayerIDValid(t *testing.T) {
	assert.True(t, PlayerID("alice").Valid())
	assert.True(t, PlayerID("bob.smith-2_x").Valid())
	assert.False(t, PlayerID("").Valid())
	assert.False(t, PlayerID("has space").Valid())
	assert.False(t, PlayerID("player:1").Valid())
}

func TestParseSessionID(t *testing.T) {
	id, err := ParseSessionID("42")
	assert.NoError(t, err)
	assert.Equal(t, SessionID(42), id)

	_, err = ParseSessionID("abc")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = ParseSessionID("0")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("submit move: %w", ErrTurnViolation)
	assert.Equal(t, KindTurnViolation, KindOf(wrapped))
	assert.Equal(t, KindUnknownPlayer, KindOf(ErrUnknownPlayer))
	assert.Equal(t, KindInternal, KindOf(fmt.Errorf("boom")))
}

func TestChannels(t *testing.T) {
	assert.Equal(t, Channel("player:alice"), PlayerChannel("alice"))
	assert.Equal(t, Channel("session:7"), SessionChannel(7))
}
