package store

import (
	"github.com/rickgao/elevenfingers/internal/model"
)

// Session bundles the cells published for one game-session connection.
type Session struct {
	Status   *Cell[model.ConnectionStatus]
	Players  *Cell[model.Roster]
	Game     *Cell[*model.GameSnapshot]
	Progress *Cell[model.Progress]
	Rankings *Cell[model.Rankings]
	GameOver *Cell[bool]
}

// NewSession creates a session with every cell at its initial value:
// disconnected, empty roster, no game.
func NewSession() *Session {
	return &Session{
		Status:   NewCell(model.StatusDisconnected),
		Players:  NewCell(model.Roster{}),
		Game:     NewCell[*model.GameSnapshot](nil),
		Progress: NewCell(model.Progress{}),
		Rankings: NewCell(model.Rankings{}),
		GameOver: NewCell(false),
	}
}

// View is a point-in-time copy of a Session, suitable for encoding.
type View struct {
	Status   model.ConnectionStatus `json:"status"`
	Players  model.Roster           `json:"players"`
	Game     *GameView              `json:"game,omitempty"`
	Progress model.Progress         `json:"progress"`
	Rankings model.Rankings         `json:"rankings"`
	GameOver bool                   `json:"gameOver"`
}

// GameView is the encodable part of a GameSnapshot.
type GameView struct {
	Text      string `json:"text"`
	StartTime string `json:"startTime,omitempty"`
	Words     int    `json:"words"`
}

// View returns a copy of the current cell values.
func (s *Session) View() View {
	v := View{
		Status:   s.Status.Get(),
		Players:  s.Players.Get().Clone(),
		Progress: copyMap(s.Progress.Get()),
		Rankings: copyMap(s.Rankings.Get()),
		GameOver: s.GameOver.Get(),
	}

	if g := s.Game.Get(); g != nil {
		gv := &GameView{Text: g.Text, Words: g.WordCount()}
		if !g.StartTime.IsZero() {
			gv.StartTime = g.StartTime.UTC().Format("2006-01-02T15:04:05.000Z07:00")
		}
		v.Game = gv
	}

	return v
}

func copyMap[M ~map[string]int](m M) M {
	out := make(M, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
