package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/elevenfingers/internal/model"
	"github.com/rickgao/elevenfingers/internal/router"
)

// StatusSource reports the current connection status.
type StatusSource interface {
	Status() model.ConnectionStatus
}

// Sender delivers an outbound command on the session socket.
type Sender interface {
	Send(v any) error
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Poll interval (default: 30s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
	}
}

// Stats counts poll outcomes.
type Stats struct {
	Sent    int64
	Skipped int64
	Errors  int64
}

// Poller periodically requests a room-status broadcast.
type Poller struct {
	cfg    Config
	status StatusSource
	sender Sender
	logger *slog.Logger

	sent    atomic.Int64
	skipped atomic.Int64
	errors  atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, status StatusSource, sender Sender, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Poller{
		cfg:    cfg,
		status: status,
		sender: sender,
		logger: logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("room status poller started", "interval", p.cfg.Interval)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("room status poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns poll counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Sent:    p.sent.Load(),
		Skipped: p.skipped.Load(),
		Errors:  p.errors.Load(),
	}
}

func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

// poll sends one room-status request if the socket is open.
func (p *Poller) poll() {
	if st := p.status.Status(); st != model.StatusConnected {
		p.logger.Debug("skipping room status poll", "status", st)
		p.skipped.Add(1)
		return
	}

	if err := p.sender.Send(router.RequestRoomStatus()); err != nil {
		p.logger.Warn("room status request failed", "err", err)
		p.errors.Add(1)
		return
	}
	p.sent.Add(1)
}
