package router

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/elevenfingers/internal/metrics"
	"github.com/rickgao/elevenfingers/internal/model"
	"github.com/rickgao/elevenfingers/internal/store"
)

// Router decodes frames and writes them into a Session.
type Router struct {
	session *store.Session
	events  *Queue[GameEvent] // optional
	metrics *metrics.Collector
	logger  *slog.Logger

	mu              sync.Mutex
	received        int64
	routed          int64
	parseErrors     int64
	unknownMessages int64
}

// Option configures a Router.
type Option func(*Router)

// WithEvents publishes game milestones to q.
func WithEvents(q *Queue[GameEvent]) Option {
	return func(r *Router) {
		r.events = q
	}
}

// WithMetrics records frame metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Router) {
		r.metrics = c
	}
}

// New creates a Router writing into session.
func New(session *store.Session, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		session: session,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Session returns the session the router writes into.
func (r *Router) Session() *store.Session {
	return r.session
}

// Route decodes one frame and applies it. Malformed frames are logged and
// dropped without touching any cell.
func (r *Router) Route(data []byte, receivedAt time.Time) {
	r.mu.Lock()
	r.received++
	r.mu.Unlock()

	msg, err := Decode(data)
	if err != nil {
		r.logger.Warn("failed to decode frame", "error", err, "bytes", len(data))
		r.metrics.DecodeError()
		r.mu.Lock()
		r.parseErrors++
		r.mu.Unlock()
		return
	}

	r.metrics.Frame(msg.Type())
	if r.Apply(msg, receivedAt) {
		r.mu.Lock()
		r.routed++
		r.mu.Unlock()
	}
}

// Apply writes a decoded message into the session. Returns false for
// messages that change no cell.
func (r *Router) Apply(msg Message, receivedAt time.Time) bool {
	switch m := msg.(type) {
	case RoomStatus:
		r.session.Players.Set(m.Players)

	case StartGame:
		r.session.Game.Set(&model.GameSnapshot{
			Payload:   m.Payload,
			Text:      m.Text,
			StartTime: m.StartTime,
		})
		r.session.Progress.Set(model.Progress{})
		r.session.Rankings.Set(model.Rankings{})
		r.session.GameOver.Set(false)

		r.publish(GameEvent{
			Kind:       EventGameStarted,
			ReceivedAt: receivedAt,
			Text:       m.Text,
			StartTime:  m.StartTime,
		})

	case UserProgress:
		r.session.Progress.Update(func(p model.Progress) model.Progress {
			next := make(model.Progress, len(p)+1)
			for id, v := range p {
				next[id] = v
			}
			next[m.UserID] = m.Percentage
			return next
		})

	case PlayerRank:
		r.session.Rankings.Update(func(cur model.Rankings) model.Rankings {
			next := make(model.Rankings, len(cur)+len(m.Ranks))
			for id, pos := range cur {
				next[id] = pos
			}
			for id, pos := range m.Ranks {
				next[id] = pos
			}
			return next
		})

		roster := r.session.Players.Get()
		for id, pos := range m.Ranks {
			r.publish(GameEvent{
				Kind:       EventPlayerFinished,
				ReceivedAt: receivedAt,
				PlayerID:   id,
				Username:   roster[id].Username,
				Position:   pos,
			})
		}

	case EndGame:
		r.session.GameOver.Set(true)
		r.publish(GameEvent{Kind: EventGameEnded, ReceivedAt: receivedAt})

	case Join:
		r.logger.Info("player joined", "username", m.Username, "content", m.Content)
		return false

	case Unknown:
		r.logger.Debug("skipping message type", "type", m.Kind)
		r.mu.Lock()
		r.unknownMessages++
		r.mu.Unlock()
		return false
	}

	return true
}

// Stats returns current statistics.
func (r *Router) Stats() RouterStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return RouterStats{
		MessagesReceived: r.received,
		MessagesRouted:   r.routed,
		ParseErrors:      r.parseErrors,
		UnknownMessages:  r.unknownMessages,
	}
}

func (r *Router) publish(ev GameEvent) {
	if r.events == nil {
		return
	}
	if !r.events.Push(ev) {
		r.logger.Debug("event queue closed, dropping event", "kind", ev.Kind)
	}
}
