package router

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/elevenfingers/internal/model"
	"github.com/rickgao/elevenfingers/internal/store"
)

func newTestRouter(opts ...Option) (*Router, *store.Session) {
	s := store.NewSession()
	return New(s, slog.Default(), opts...), s
}

func TestRouter_RoomStatusReplacesRoster(t *testing.T) {
	r, s := newTestRouter()
	s.Players.Set(model.Roster{"old": {Username: "stale", Progress: 0.9}})

	r.Route([]byte(`{"type":"roomStatus","players":{"u1":{"username":"a","progress":0.2}}}`), time.Now())

	assert.Equal(t, model.Roster{"u1": {Username: "a", Progress: 0.2}}, s.Players.Get())
}

func TestRouter_RoomStatusMissingPlayers(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"absent", `{"type":"roomStatus"}`},
		{"null", `{"type":"roomStatus","players":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, s := newTestRouter()
			s.Players.Set(model.Roster{"u1": {Username: "a"}})

			r.Route([]byte(tt.frame), time.Now())

			got := s.Players.Get()
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestRouter_RoomStatusReadyFlags(t *testing.T) {
	r, s := newTestRouter()

	r.Route([]byte(`{"type":"roomStatus","players":{"Guest_1":true,"Guest_2":false}}`), time.Now())

	roster := s.Players.Get()
	require.Len(t, roster, 2)
	assert.True(t, roster["Guest_1"].Ready)
	assert.False(t, roster["Guest_2"].Ready)
}

func TestRouter_StartGameStoresPayload(t *testing.T) {
	r, s := newTestRouter()
	s.Rankings.Set(model.Rankings{"u1": 1})
	s.GameOver.Set(true)

	frame := `{"type":"startGame","text":"the be to","startTime":"2024-01-15T12:00:00.5Z","extra":{"k":[1,2]}}`
	r.Route([]byte(frame), time.Now())

	g := s.Game.Get()
	require.NotNil(t, g)
	assert.JSONEq(t, frame, string(g.Payload))
	assert.Equal(t, frame, string(g.Payload))
	assert.Equal(t, "the be to", g.Text)
	assert.Equal(t, time.Date(2024, 1, 15, 12, 0, 0, 500_000_000, time.UTC), g.StartTime.UTC())

	assert.Empty(t, s.Rankings.Get())
	assert.False(t, s.GameOver.Get())
}

func TestRouter_StartGameReplacesWholesale(t *testing.T) {
	r, s := newTestRouter()

	r.Route([]byte(`{"type":"startGame","text":"first"}`), time.Now())
	r.Route([]byte(`{"type":"startGame"}`), time.Now())

	g := s.Game.Get()
	require.NotNil(t, g)
	assert.Equal(t, "", g.Text)
	assert.Equal(t, `{"type":"startGame"}`, string(g.Payload))
}

func TestRouter_StartGameLenientFields(t *testing.T) {
	r, s := newTestRouter()

	r.Route([]byte(`{"type":"startGame","text":42,"startTime":"yesterday"}`), time.Now())

	g := s.Game.Get()
	require.NotNil(t, g)
	assert.Empty(t, g.Text)
	assert.True(t, g.StartTime.IsZero())
}

func TestRouter_MalformedFramesLeaveCellsUnchanged(t *testing.T) {
	frames := []string{
		``,
		`not json`,
		`{"type":"roomStatus"`,
		`[1,2,3]`,
		`"roomStatus"`,
		`null`,
		`{"type":"roomStatus","players":"everyone"}`,
		`{"type":"roomStatus","players":{"u1":"a"}}`,
	}

	for _, frame := range frames {
		t.Run(frame, func(t *testing.T) {
			r, s := newTestRouter()
			roster := model.Roster{"u1": {Username: "a", Progress: 0.5}}
			snap := &model.GameSnapshot{Text: "keep"}
			s.Players.Set(roster)
			s.Game.Set(snap)

			assert.NotPanics(t, func() {
				r.Route([]byte(frame), time.Now())
			})

			assert.Equal(t, roster, s.Players.Get())
			assert.Same(t, snap, s.Game.Get())
			assert.Equal(t, int64(1), r.Stats().ParseErrors)
		})
	}
}

func TestRouter_UnknownTypeLeavesCellsUnchanged(t *testing.T) {
	frames := []string{
		`{"type":"somethingNew","players":{"x":{"username":"x"}}}`,
		`{"players":{"x":{"username":"x"}}}`,
		`{"type":7}`,
	}

	for _, frame := range frames {
		t.Run(frame, func(t *testing.T) {
			r, s := newTestRouter()
			roster := model.Roster{"u1": {Username: "a"}}
			s.Players.Set(roster)

			r.Route([]byte(frame), time.Now())

			assert.Equal(t, roster, s.Players.Get())
			assert.Nil(t, s.Game.Get())

			stats := r.Stats()
			assert.Equal(t, int64(1), stats.UnknownMessages)
			assert.Equal(t, int64(0), stats.MessagesRouted)
			assert.Equal(t, int64(0), stats.ParseErrors)
		})
	}
}

func TestRouter_ProgressAndRankings(t *testing.T) {
	q := NewQueue[GameEvent](4)
	r, s := newTestRouter(WithEvents(q))

	r.Route([]byte(`{"type":"roomStatus","players":{"u1":{"username":"alice","progress":0}}}`), time.Now())
	r.Route([]byte(`{"type":"startGame","text":"a b c"}`), time.Now())
	r.Route([]byte(`{"type":"userProgress","userid":"u1","percentage":33}`), time.Now())
	r.Route([]byte(`{"type":"userProgress","userid":"u2","percentage":66}`), time.Now())
	r.Route([]byte(`{"type":"playerRank","playerrank":{"u1":1}}`), time.Now())
	r.Route([]byte(`{"type":"endGame"}`), time.Now())

	assert.Equal(t, model.Progress{"u1": 33, "u2": 66}, s.Progress.Get())
	assert.Equal(t, model.Rankings{"u1": 1}, s.Rankings.Get())
	assert.True(t, s.GameOver.Get())

	// Roster untouched by per-game frames
	assert.Equal(t, 0.0, s.Players.Get()["u1"].Progress)

	events := q.Drain(0)
	require.Len(t, events, 3)
	assert.Equal(t, EventGameStarted, events[0].Kind)
	assert.Equal(t, "a b c", events[0].Text)
	assert.Equal(t, EventPlayerFinished, events[1].Kind)
	assert.Equal(t, "u1", events[1].PlayerID)
	assert.Equal(t, "alice", events[1].Username)
	assert.Equal(t, 1, events[1].Position)
	assert.Equal(t, EventGameEnded, events[2].Kind)
}

func TestRouter_JoinIsLoggedOnly(t *testing.T) {
	r, s := newTestRouter()

	r.Route([]byte(`{"type":"join","username":"Guest_1","content":"Guest_1 joined the game"}`), time.Now())

	assert.Empty(t, s.Players.Get())
	assert.Equal(t, int64(1), r.Stats().MessagesReceived)
	assert.Equal(t, int64(0), r.Stats().MessagesRouted)
}

func TestRouter_ClosedEventQueue(t *testing.T) {
	q := NewQueue[GameEvent](1)
	q.Close()
	r, s := newTestRouter(WithEvents(q))

	r.Route([]byte(`{"type":"startGame","text":"x"}`), time.Now())

	assert.NotNil(t, s.Game.Get())
	assert.Equal(t, 0, q.Len())
}

func TestDecode_Unknown(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"mystery","x":1}`))
	require.NoError(t, err)

	u, ok := msg.(Unknown)
	require.True(t, ok)
	assert.Equal(t, "mystery", u.Type())
	assert.JSONEq(t, `{"type":"mystery","x":1}`, string(u.Payload))
}

func TestOutboundCommands(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"join", JoinRoom("lobby-1"), `{"type":"join","content":{"room":"lobby-1"}}`},
		{"ready", Ready(), `{"type":"ready"}`},
		{"word", WordComplete("the"), `{"type":"wordComplete","content":{"word":"the"}}`},
		{"status", RequestRoomStatus(), `{"type":"roomStatus"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.cmd)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}
