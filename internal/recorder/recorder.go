package recorder

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rickgao/elevenfingers/internal/model"
	"github.com/rickgao/elevenfingers/internal/router"
)

// Recorder consumes game events and writes games and placements.
type Recorder struct {
	cfg    Config
	logger *slog.Logger

	// Input from the router
	input *router.Queue[router.GameEvent]

	// Database
	db DB

	// Batching
	batchMu     sync.Mutex
	games       []gameRow
	placements  []placementRow
	current     *game
	lastResults []model.GameResult
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	stats Stats
}

// New creates a Recorder reading from input.
func New(cfg Config, input *router.Queue[router.GameEvent], db DB, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultConfig().FlushInterval
	}
	return &Recorder{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		ctx:    context.Background(),
	}
}

// Start begins consuming events and writing to the database.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.flushTicker = time.NewTicker(r.cfg.FlushInterval)

	r.wg.Add(1)
	go r.consumeLoop()

	r.wg.Add(1)
	go r.flushLoop()

	r.logger.Info("game recorder started",
		"room", r.cfg.Room,
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts down the recorder, applying queued events and flushing
// buffered rows.
func (r *Recorder) Stop(ctx context.Context) error {
	r.logger.Info("stopping game recorder")

	if r.cancel != nil {
		r.cancel()
	}
	if r.flushTicker != nil {
		r.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("game recorder stop timed out")
	}

	for _, ev := range r.input.Drain(0) {
		r.handleEvent(ev)
	}

	// Final flush runs on the caller's context since ours is cancelled.
	r.flushWith(ctx)
	r.logger.Info("game recorder stopped")

	return nil
}

// Stats returns current statistics.
func (r *Recorder) Stats() Stats {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return r.stats
}

// LastResults returns the placements of the most recently ended game,
// ordered by position.
func (r *Recorder) LastResults() []model.GameResult {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return append([]model.GameResult(nil), r.lastResults...)
}

// consumeLoop reads from the input queue and accumulates batches.
func (r *Recorder) consumeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		default:
			ev, ok := r.input.TryPop()
			if !ok {
				select {
				case <-r.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}

			if r.handleEvent(ev) {
				r.flush()
			}
		}
	}
}

// flushLoop periodically flushes the batches.
func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.flushTicker.C:
			r.flush()
		}
	}
}

// handleEvent applies one event. Returns true when the batch is full.
func (r *Recorder) handleEvent(ev router.GameEvent) bool {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()

	switch ev.Kind {
	case router.EventGameStarted:
		row := r.transformGame(ev)
		r.games = append(r.games, row)
		r.current = &game{
			id:        row.GameID,
			startedAt: row.StartedAt,
			words:     (&model.GameSnapshot{Text: ev.Text}).WordCount(),
			finished:  make(map[string]placementRow),
		}
		r.stats.Games++
		r.logger.Debug("game started", "game_id", row.GameID, "words", r.current.words)

	case router.EventPlayerFinished:
		if r.current == nil {
			r.stats.Orphans++
			r.logger.Debug("placement without a game", "player_id", ev.PlayerID)
			return false
		}
		if _, seen := r.current.finished[ev.PlayerID]; seen {
			return false
		}
		row := r.transformPlacement(r.current, ev)
		r.current.finished[ev.PlayerID] = row
		r.placements = append(r.placements, row)
		r.stats.Placements++

	case router.EventGameEnded:
		if r.current == nil || r.current.ended {
			return false
		}
		r.current.ended = true
		r.lastResults = results(r.current)
		r.logger.Info("game ended",
			"game_id", r.current.id,
			"finished", len(r.current.finished),
		)
	}

	return len(r.games)+len(r.placements) >= r.cfg.BatchSize
}

// transformGame converts a game_started event to a database row.
func (r *Recorder) transformGame(ev router.GameEvent) gameRow {
	started := ev.StartTime
	if started.IsZero() {
		started = ev.ReceivedAt
	}
	return gameRow{
		GameID:     uuid.New(),
		Room:       r.cfg.Room,
		Text:       ev.Text,
		StartedAt:  started,
		ObservedAt: ev.ReceivedAt,
	}
}

// transformPlacement converts a player_finished event to a database row.
func (r *Recorder) transformPlacement(g *game, ev router.GameEvent) placementRow {
	return placementRow{
		GameID:     g.id,
		PlayerID:   ev.PlayerID,
		Username:   ev.Username,
		Position:   ev.Position,
		WPM:        wordsPerMinute(g.words, ev.ReceivedAt.Sub(g.startedAt)),
		FinishedAt: ev.ReceivedAt,
	}
}

// wordsPerMinute returns words / elapsed minutes, or 0 for a non-positive
// elapsed time.
func wordsPerMinute(words int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(words) / elapsed.Minutes()
}

// results orders a game's placements by position.
func results(g *game) []model.GameResult {
	rows := make([]placementRow, 0, len(g.finished))
	for _, row := range g.finished {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Position != rows[j].Position {
			return rows[i].Position < rows[j].Position
		}
		return rows[i].PlayerID < rows[j].PlayerID
	})

	out := make([]model.GameResult, len(rows))
	for i, row := range rows {
		username := row.Username
		if username == "" {
			username = row.PlayerID
		}
		out[i] = model.GameResult{Username: username, WPM: row.WPM}
	}
	return out
}

// flush writes the current batch to the database.
func (r *Recorder) flush() {
	r.flushWith(r.ctx)
}

func (r *Recorder) flushWith(ctx context.Context) {
	r.batchMu.Lock()
	if len(r.games) == 0 && len(r.placements) == 0 {
		r.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	games := r.games
	placements := r.placements
	r.games = nil
	r.placements = nil
	r.batchMu.Unlock()

	if r.db == nil {
		r.logger.Debug("no database, discarding rows", "games", len(games), "placements", len(placements))
		return
	}

	start := time.Now()
	conflicts, err := r.batchInsert(ctx, games, placements)
	if err != nil {
		r.logger.Error("batch insert failed", "error", err,
			"games", len(games),
			"placements", len(placements),
		)
		r.batchMu.Lock()
		r.stats.Errors++
		r.batchMu.Unlock()
		return
	}

	total := len(games) + len(placements)

	r.batchMu.Lock()
	r.stats.Inserts += int64(total - conflicts)
	r.stats.Conflicts += int64(conflicts)
	r.stats.Flushes++
	r.batchMu.Unlock()

	r.logger.Debug("flushed game rows",
		"count", total,
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
// Games are queued first so placements can reference them.
func (r *Recorder) batchInsert(ctx context.Context, games []gameRow, placements []placementRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, g := range games {
		batch.Queue(`
			INSERT INTO games (game_id, room, text, started_at, observed_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (game_id) DO NOTHING
		`, g.GameID, g.Room, g.Text, g.StartedAt, g.ObservedAt)
	}
	for _, p := range placements {
		batch.Queue(`
			INSERT INTO placements (game_id, player_id, username, position, wpm, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (game_id, player_id) DO NOTHING
		`, p.GameID, p.PlayerID, p.Username, p.Position, p.WPM, p.FinishedAt)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		ct, err := br.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
