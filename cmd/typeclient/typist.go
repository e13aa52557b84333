package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rickgao/elevenfingers/internal/connection"
	"github.com/rickgao/elevenfingers/internal/router"
)

// typist sends each word of the game text at a fixed words-per-minute pace.
type typist struct {
	h      connection.Handle
	pace   time.Duration
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func newTypist(h connection.Handle, wpm int, logger *slog.Logger) *typist {
	t := &typist{h: h, logger: logger}
	if wpm > 0 {
		t.pace = time.Minute / time.Duration(wpm)
	}
	return t
}

// start replaces any running run with one typing text. It is a no-op when
// the typist is disabled.
func (t *typist) start(text string) {
	if t.pace == 0 {
		return
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return
	}

	t.stop()

	ctx, cancel := context.WithCancel(context.Background())

	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()

	go t.run(ctx, words)
}

// stop cancels the current run without waiting for it.
func (t *typist) stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (t *typist) run(ctx context.Context, words []string) {
	ticker := time.NewTicker(t.pace)
	defer ticker.Stop()

	for i, w := range words {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := t.h.Send(router.WordComplete(w)); err != nil {
			t.logger.Warn("word not sent, stopping", "index", i, "error", err)
			return
		}
	}
	t.logger.Debug("typed game text", "words", len(words))
}
