package recorder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DB is the subset of *pgxpool.Pool the recorder uses.
type DB interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config holds recorder settings.
type Config struct {
	Room          string        // Room recorded on each game row
	BatchSize     int           // Rows buffered before an early flush
	FlushInterval time.Duration // Max time rows wait before being written
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: 2 * time.Second,
	}
}

// Stats contains recorder statistics.
type Stats struct {
	Games      int64 // Games opened
	Placements int64 // Placements recorded
	Orphans    int64 // Placements seen with no open game
	Inserts    int64
	Conflicts  int64
	Errors     int64
	Flushes    int64
}

type gameRow struct {
	GameID     uuid.UUID
	Room       string
	Text       string
	StartedAt  time.Time
	ObservedAt time.Time
}

type placementRow struct {
	GameID     uuid.UUID
	PlayerID   string
	Username   string
	Position   int
	WPM        float64
	FinishedAt time.Time
}

// game is the game currently being observed.
type game struct {
	id        uuid.UUID
	startedAt time.Time
	words     int
	finished  map[string]placementRow
	ended     bool
}
