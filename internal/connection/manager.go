package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/elevenfingers/internal/metrics"
	"github.com/rickgao/elevenfingers/internal/model"
	"github.com/rickgao/elevenfingers/internal/router"
	"github.com/rickgao/elevenfingers/internal/store"
)

// Manager owns one game-session connection and its reconnect timer.
type Manager interface {
	// Connect cancels any pending retry, closes any existing socket and
	// starts a new attempt against url.
	Connect(url string) Handle

	// StopRetrying cancels a pending retry and disables automatic
	// reconnects until the next Connect.
	StopRetrying()

	// Status returns the current connection status.
	Status() model.ConnectionStatus

	// Stats returns current connection statistics.
	Stats() ManagerStats

	// Shutdown closes the connection without reconnecting and waits for
	// background goroutines to exit.
	Shutdown(ctx context.Context) error
}

// Handle is returned by Connect.
type Handle interface {
	// Send JSON-encodes v and writes it if the socket is open. It returns
	// ErrNotConnected otherwise; nothing is queued.
	Send(v any) error

	// Close closes the current socket. No reconnect follows.
	Close() error
}

// Option configures a Manager.
type Option func(*manager)

// WithClock replaces the clock used for reconnect timers.
func WithClock(c Clock) Option {
	return func(m *manager) {
		m.clock = c
	}
}

// WithClientFactory replaces the WebSocket client constructor.
func WithClientFactory(f ClientFactory) Option {
	return func(m *manager) {
		m.newClient = f
	}
}

// WithMetrics records connection metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(m *manager) {
		m.metrics = c
	}
}

// attempt is one socket, from dial to close.
type attempt struct {
	gen    uint64
	id     uuid.UUID
	url    string
	client Client
	cancel context.CancelFunc
	stop   chan struct{}
	open   bool // guarded by manager.mu
}

// manager implements the Manager interface.
type manager struct {
	cfg       ManagerConfig
	router    *router.Router
	session   *store.Session
	logger    *slog.Logger
	clock     Clock
	newClient ClientFactory
	metrics   *metrics.Collector

	inbox    *router.Queue[loopEvent]
	loopDone chan struct{}
	wg       sync.WaitGroup // attempt goroutines

	// Owned by the loop goroutine.
	gen           uint64
	url           string
	retryTimer    Timer
	retrySeq      uint64
	retries       int
	retryDisabled bool
	shutdown      bool

	mu    sync.Mutex
	live  *attempt // written by the loop only
	stats ManagerStats
}

// NewManager creates a Connection Manager that routes frames through r and
// starts its event loop.
func NewManager(cfg ManagerConfig, r *router.Router, logger *slog.Logger, opts ...Option) Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReconnectBaseWait <= 0 {
		cfg.ReconnectBaseWait = DefaultManagerConfig().ReconnectBaseWait
	}
	if cfg.ReconnectMaxWait < cfg.ReconnectBaseWait {
		cfg.ReconnectMaxWait = cfg.ReconnectBaseWait
	}

	m := &manager{
		cfg:       cfg,
		router:    r,
		session:   r.Session(),
		logger:    logger,
		clock:     SystemClock(),
		newClient: NewClient,
		inbox:     router.NewQueue[loopEvent](64),
		loopDone:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	go m.loop()

	return m
}

// Connect starts a new attempt against url.
func (m *manager) Connect(url string) Handle {
	m.inbox.Push(connectCmd{url: url})
	return &handle{m: m}
}

// StopRetrying disables automatic reconnects until the next Connect.
func (m *manager) StopRetrying() {
	m.inbox.Push(stopRetryCmd{})
}

// Status returns the current connection status.
func (m *manager) Status() model.ConnectionStatus {
	return m.session.Status.Get()
}

// Stats returns current statistics.
func (m *manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Shutdown closes the connection and waits for goroutines to exit.
func (m *manager) Shutdown(ctx context.Context) error {
	m.inbox.Push(shutdownCmd{})
	m.inbox.Close()

	done := make(chan struct{})
	go func() {
		<-m.loopDone
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("connection manager stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handle implements the Handle interface.
type handle struct {
	m *manager
}

// Send writes v to the open socket.
func (h *handle) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	m := h.m
	m.mu.Lock()
	a := m.live
	open := a != nil && a.open
	m.mu.Unlock()

	if !open {
		m.sendFailed(ErrNotConnected)
		return ErrNotConnected
	}

	if err := a.client.Send(data); err != nil {
		m.sendFailed(err)
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Close closes the current socket without reconnecting.
func (h *handle) Close() error {
	if !h.m.inbox.Push(closeCmd{}) {
		return ErrShutdown
	}
	return nil
}

func (m *manager) sendFailed(err error) {
	m.logger.Warn("websocket not connected, message dropped", "error", err)
	m.metrics.SendFailure()
	m.mu.Lock()
	m.stats.SendFailures++
	m.mu.Unlock()
}

// loop applies events one at a time until the inbox is closed and drained.
func (m *manager) loop() {
	defer close(m.loopDone)

	for {
		ev, ok := m.inbox.Pop()
		if !ok {
			return
		}
		m.handleEvent(ev)
	}
}

func (m *manager) handleEvent(ev loopEvent) {
	switch ev := ev.(type) {
	case connectCmd:
		if m.shutdown {
			return
		}
		m.retries = 0
		m.retryDisabled = false
		m.connect(ev.url)

	case closeCmd:
		m.closeIntentional()

	case stopRetryCmd:
		m.cancelRetry()
		m.retryDisabled = true
		m.logger.Info("automatic reconnect disabled")

	case shutdownCmd:
		m.closeIntentional()
		m.retryDisabled = true
		m.shutdown = true

	case retryFired:
		if m.shutdown || m.retryTimer == nil || ev.seq != m.retrySeq {
			return
		}
		m.retryTimer = nil
		m.setRetryPending(false)
		m.connect(m.url)

	case socketOpened:
		a := m.current(ev.gen)
		if a == nil {
			return
		}
		m.mu.Lock()
		a.open = true
		m.stats.ConsecutiveFailures = 0
		m.mu.Unlock()
		m.retries = 0
		m.logger.Info("websocket connected", "url", a.url, "attempt", a.id)
		m.setStatus(model.StatusConnected)

	case socketFrame:
		if m.current(ev.gen) == nil {
			return
		}
		m.router.Route(ev.data, ev.receivedAt)

	case socketError:
		a := m.current(ev.gen)
		if a == nil {
			return
		}
		m.logger.Warn("websocket error", "error", ev.err, "attempt", a.id)
		m.setStatus(model.StatusError)

	case socketClosed:
		a := m.current(ev.gen)
		if a == nil {
			return
		}
		m.retire()
		m.logger.Info("websocket closed", "url", a.url, "attempt", a.id)
		m.setStatus(model.StatusDisconnected)
		m.scheduleRetry()
	}
}

// current returns the live attempt if it belongs to generation gen.
// Events from superseded attempts get nil.
func (m *manager) current(gen uint64) *attempt {
	if m.live == nil || m.live.gen != gen {
		return nil
	}
	return m.live
}

// connect replaces the live attempt with a new one against url.
func (m *manager) connect(url string) {
	m.cancelRetry()
	m.retire()

	m.gen++
	m.url = url

	cfg := m.cfg.Client
	cfg.URL = url

	ctx, cancel := context.WithCancel(context.Background())
	a := &attempt{
		gen:    m.gen,
		id:     uuid.New(),
		url:    url,
		cancel: cancel,
		stop:   make(chan struct{}),
	}
	a.client = m.newClient(cfg, m.logger.With("attempt", a.id))

	m.mu.Lock()
	m.live = a
	m.stats.ConnectAttempts++
	m.mu.Unlock()

	m.metrics.ConnectAttempt()
	m.logger.Debug("connecting", "url", url, "attempt", a.id)
	m.setStatus(model.StatusConnecting)

	m.wg.Add(1)
	go m.run(ctx, a)
}

// retire detaches and closes the live attempt. Its remaining events are
// ignored.
func (m *manager) retire() {
	a := m.live
	if a == nil {
		return
	}

	m.mu.Lock()
	m.live = nil
	m.mu.Unlock()

	close(a.stop)
	a.cancel()
	if err := a.client.Close(); err != nil {
		m.logger.Debug("close websocket", "error", err, "attempt", a.id)
	}
}

func (m *manager) closeIntentional() {
	m.cancelRetry()
	if m.live != nil {
		m.logger.Info("closing websocket", "url", m.live.url, "attempt", m.live.id)
		m.retire()
	}
	m.setStatus(model.StatusDisconnected)
}

// scheduleRetry arms the single reconnect timer.
func (m *manager) scheduleRetry() {
	if m.retryDisabled {
		m.logger.Debug("reconnect disabled, not retrying")
		return
	}
	if limit := m.cfg.MaxReconnectAttempts; limit > 0 && m.retries >= limit {
		m.logger.Warn("giving up on reconnect", "attempts", m.retries, "url", m.url)
		return
	}

	delay := m.backoff(m.retries)
	m.retries++
	m.retrySeq++
	seq := m.retrySeq

	m.retryTimer = m.clock.AfterFunc(delay, func() {
		m.inbox.Push(retryFired{seq: seq})
	})

	m.mu.Lock()
	m.stats.ReconnectsScheduled++
	m.stats.ConsecutiveFailures = m.retries
	m.stats.RetryPending = true
	m.mu.Unlock()

	m.metrics.ReconnectScheduled()
	m.logger.Info("reconnecting", "delay", delay, "retry", m.retries, "url", m.url)
}

// cancelRetry stops the pending timer, if any. A callback that already fired
// is ignored because its sequence number no longer matches.
func (m *manager) cancelRetry() {
	m.retrySeq++
	if m.retryTimer == nil {
		return
	}
	m.retryTimer.Stop()
	m.retryTimer = nil
	m.setRetryPending(false)
}

// backoff returns base * 2^n capped at the max wait.
func (m *manager) backoff(n int) time.Duration {
	d := m.cfg.ReconnectBaseWait
	for i := 0; i < n && d < m.cfg.ReconnectMaxWait; i++ {
		d *= 2
	}
	if d > m.cfg.ReconnectMaxWait {
		d = m.cfg.ReconnectMaxWait
	}
	return d
}

func (m *manager) setRetryPending(pending bool) {
	m.mu.Lock()
	m.stats.RetryPending = pending
	m.mu.Unlock()
}

func (m *manager) setStatus(s model.ConnectionStatus) {
	if m.session.Status.Get() == s {
		return
	}
	m.metrics.SetStatus(s)
	m.session.Status.Set(s)
}

// run drives one attempt and reports its lifecycle to the loop.
func (m *manager) run(ctx context.Context, a *attempt) {
	defer m.wg.Done()

	if err := a.client.Connect(ctx); err != nil {
		select {
		case <-a.stop:
			return
		default:
		}
		m.inbox.Push(socketError{gen: a.gen, err: err})
		m.inbox.Push(socketClosed{gen: a.gen})
		return
	}
	m.inbox.Push(socketOpened{gen: a.gen})

	msgs := a.client.Messages()
	errs := a.client.Errors()

	for {
		select {
		case <-a.stop:
			return

		case msg := <-msgs:
			m.inbox.Push(socketFrame{gen: a.gen, data: msg.Data, receivedAt: msg.ReceivedAt})

		case err := <-errs:
			// Frames read before the failure are already buffered.
			for drained := false; !drained; {
				select {
				case msg := <-msgs:
					m.inbox.Push(socketFrame{gen: a.gen, data: msg.Data, receivedAt: msg.ReceivedAt})
				default:
					drained = true
				}
			}
			if !isCleanClose(err) {
				m.inbox.Push(socketError{gen: a.gen, err: err})
			}
			m.inbox.Push(socketClosed{gen: a.gen})
			return
		}
	}
}

// isCleanClose reports whether err is a normal close from the peer.
func isCleanClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
