package redis

import (
	"fmt"

	"github.com/mcoot/duelgame/internal/model"
)

// Key prefix for all duel data
const keyPrefix = "duel"

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// sessionKey returns the Redis key for a Session
func sessionKey(id model.SessionID) string {
	return fmt.Sprintf("%s:session:%d", keyPrefix, id)
}

// movesKey returns the Redis key for the LIST of moves in a session
func movesKey(id model.SessionID) string {
	return fmt.Sprintf("%s:moves:%d", keyPrefix, id)
}

// sessionSeqKey returns the Redis key for the session id counter
func sessionSeqKey() string {
	return fmt.Sprintf("%s:seq:session", keyPrefix)
}

// playerSessionsIndexKey returns the Redis key for the ZSET of a player's sessions, scored by id
func playerSessionsIndexKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:idx:player_sessions:%s", keyPrefix, id)
}

// presenceKey returns the Redis key for the SET of online players
func presenceKey() string {
	return fmt.Sprintf("%s:presence", keyPrefix)
}

// presenceSeqKey returns the Redis key for the presence version counter
func presenceSeqKey() string {
	return fmt.Sprintf("%s:seq:presence", keyPrefix)
}

// revokedTokenKey returns the Redis key marking a logged-out token id
func revokedTokenKey(tokenID string) string {
	return fmt.Sprintf("%s:revoked:%s", keyPrefix, tokenID)
}
