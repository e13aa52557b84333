package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rickgao/elevenfingers/internal/model"
)

// Inbound message types.
const (
	TypeRoomStatus   = "roomStatus"
	TypeStartGame    = "startGame"
	TypeUserProgress = "userProgress"
	TypePlayerRank   = "playerRank"
	TypeEndGame      = "endGame"
	TypeJoin         = "join"
)

// ErrNotObject is returned when a frame is valid JSON but not an object.
var ErrNotObject = errors.New("frame is not a JSON object")

// Message is a decoded inbound frame. The set of implementations is closed;
// Unknown carries any type this client does not understand.
type Message interface {
	Type() string
	isMessage()
}

// RoomStatus announces the current room roster.
type RoomStatus struct {
	Players model.Roster // never nil
}

// StartGame announces a new game. Payload is the full frame.
type StartGame struct {
	Payload   json.RawMessage
	Text      string
	StartTime time.Time
}

// UserProgress reports one player's completion percentage.
type UserProgress struct {
	UserID     string
	Percentage int
}

// PlayerRank reports finishing positions.
type PlayerRank struct {
	Ranks model.Rankings
}

// EndGame marks the end of the current game.
type EndGame struct{}

// Join announces a player joining the room.
type Join struct {
	Username string
	Content  string
}

// Unknown is any frame with an unrecognized type.
type Unknown struct {
	Kind    string
	Payload json.RawMessage
}

func (RoomStatus) Type() string   { return TypeRoomStatus }
func (StartGame) Type() string    { return TypeStartGame }
func (UserProgress) Type() string { return TypeUserProgress }
func (PlayerRank) Type() string   { return TypePlayerRank }
func (EndGame) Type() string      { return TypeEndGame }
func (Join) Type() string         { return TypeJoin }
func (u Unknown) Type() string    { return u.Kind }

func (RoomStatus) isMessage()   {}
func (StartGame) isMessage()    {}
func (UserProgress) isMessage() {}
func (PlayerRank) isMessage()   {}
func (EndGame) isMessage()      {}
func (Join) isMessage()         {}
func (Unknown) isMessage()      {}

// Wire formats
type roomStatusWire struct {
	Players model.Roster `json:"players"`
}

type userProgressWire struct {
	UserID     string `json:"userid"`
	Percentage int    `json:"percentage"`
}

type playerRankWire struct {
	PlayerRank model.Rankings `json:"playerrank"`
}

type joinWire struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

// Decode parses a frame into a Message.
func Decode(data []byte) (Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, ErrNotObject
	}

	var msgType string
	if raw, ok := fields["type"]; ok {
		// A non-string discriminant is treated as unknown, not malformed.
		_ = json.Unmarshal(raw, &msgType)
	}

	switch msgType {
	case TypeRoomStatus:
		var wire roomStatusWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("decode %s: %w", msgType, err)
		}
		if wire.Players == nil {
			wire.Players = model.Roster{}
		}
		return RoomStatus{Players: wire.Players}, nil

	case TypeStartGame:
		msg := StartGame{Payload: append(json.RawMessage(nil), data...)}
		if raw, ok := fields["text"]; ok {
			_ = json.Unmarshal(raw, &msg.Text)
		}
		if raw, ok := fields["startTime"]; ok {
			var s string
			if json.Unmarshal(raw, &s) == nil {
				if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
					msg.StartTime = ts
				}
			}
		}
		return msg, nil

	case TypeUserProgress:
		var wire userProgressWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("decode %s: %w", msgType, err)
		}
		return UserProgress{UserID: wire.UserID, Percentage: wire.Percentage}, nil

	case TypePlayerRank:
		var wire playerRankWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("decode %s: %w", msgType, err)
		}
		if wire.PlayerRank == nil {
			wire.PlayerRank = model.Rankings{}
		}
		return PlayerRank{Ranks: wire.PlayerRank}, nil

	case TypeEndGame:
		return EndGame{}, nil

	case TypeJoin:
		var wire joinWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("decode %s: %w", msgType, err)
		}
		return Join{Username: wire.Username, Content: wire.Content}, nil

	default:
		return Unknown{Kind: msgType, Payload: bytes.Clone(data)}, nil
	}
}
