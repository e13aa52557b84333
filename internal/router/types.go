package router

import "time"

// EventKind identifies a GameEvent.
type EventKind string

const (
	EventGameStarted    EventKind = "game_started"
	EventPlayerFinished EventKind = "player_finished"
	EventGameEnded      EventKind = "game_ended"
)

// GameEvent is published for each game milestone the router observes.
type GameEvent struct {
	Kind       EventKind
	ReceivedAt time.Time

	// EventGameStarted
	Text      string
	StartTime time.Time

	// EventPlayerFinished
	PlayerID string
	Username string
	Position int
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	MessagesReceived int64
	MessagesRouted   int64
	ParseErrors      int64
	UnknownMessages  int64
}
