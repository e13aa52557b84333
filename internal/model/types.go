package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

// ConnectionStatus is the lifecycle state of a game-session connection.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusError        ConnectionStatus = "error"
)

// AllStatuses lists every ConnectionStatus in lifecycle order.
var AllStatuses = []ConnectionStatus{
	StatusDisconnected,
	StatusConnecting,
	StatusConnected,
	StatusError,
}

func (s ConnectionStatus) String() string {
	return string(s)
}

// -----------------------------------------------------------------------------
// Accounts
// -----------------------------------------------------------------------------

// User is an account on the auth backend.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// GameResult is a player's outcome for a finished game.
type GameResult struct {
	Username string  `json:"username"`
	WPM      float64 `json:"wpm"`
	Accuracy float64 `json:"accuracy"`
}

// -----------------------------------------------------------------------------
// Room & Game
// -----------------------------------------------------------------------------

// Player is one entry in a room roster.
type Player struct {
	Username string  `json:"username"`
	Progress float64 `json:"progress"` // 0.0-1.0
	Ready    bool    `json:"ready,omitempty"`
}

// UnmarshalJSON accepts either a player object or a bare boolean. The game
// server reports pre-game rosters as {id: readyFlag}.
func (p *Player) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("true")) || bytes.Equal(trimmed, []byte("false")) {
		*p = Player{Ready: trimmed[0] == 't'}
		return nil
	}

	type plain Player
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Player(v)
	return nil
}

// Roster maps player ID to player state.
type Roster map[string]Player

// Clone returns a copy that shares no storage with r.
func (r Roster) Clone() Roster {
	out := make(Roster, len(r))
	for id, p := range r {
		out[id] = p
	}
	return out
}

// GameSnapshot is the started-game payload. Payload holds the frame exactly as
// received; Text and StartTime are decoded for convenience when present.
type GameSnapshot struct {
	Payload   json.RawMessage
	Text      string
	StartTime time.Time
}

// WordCount returns the number of whitespace-separated words in the game text.
func (g *GameSnapshot) WordCount() int {
	if g == nil {
		return 0
	}
	return len(bytes.Fields([]byte(g.Text)))
}

// Rankings maps player ID to finishing position (1-based).
type Rankings map[string]int

// Progress maps player ID to percent of the game text completed (0-100).
type Progress map[string]int
