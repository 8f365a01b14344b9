// Package history persists settled render attempts for the sysop surface
// and startup warming.
package history

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/diagram-go/internal/domain/entities/diagram"
	"github.com/AtRiskMedia/diagram-go/internal/domain/lifecycle"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/persistence/database"
)

// Entry is one persisted render attempt.
type Entry struct {
	RequestID  string    `json:"requestId"`
	WidgetID   string    `json:"widgetId"`
	Input      string    `json:"input"`
	Outcome    string    `json:"outcome"`
	ErrorKind  string    `json:"errorKind,omitempty"`
	Message    string    `json:"message,omitempty"`
	DurationMS int64     `json:"durationMs"`
	CacheHit   bool      `json:"cacheHit"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Repository stores render history in the configured database.
type Repository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// compile-time contract check
var _ lifecycle.AttemptRecorder = (*Repository)(nil)

// NewRepository creates the render history repository and ensures its schema.
func NewRepository(db *database.DB, logger *logging.ChanneledLogger) (*Repository, error) {
	repo := &Repository{db: db, logger: logger}
	if err := repo.ensureSchema(); err != nil {
		return nil, fmt.Errorf("failed to ensure render history schema: %w", err)
	}
	return repo, nil
}

func (r *Repository) ensureSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS render_history (
	request_id  TEXT PRIMARY KEY,
	widget_id   TEXT NOT NULL,
	input       TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	error_kind  TEXT,
	message     TEXT,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	cache_hit   INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_render_history_created ON render_history(created_at);
`
	_, err := r.db.Exec(schema)
	return err
}

// RecordAttempt persists one settled render attempt. Persistence failures
// are logged, never surfaced to the render pipeline.
func (r *Repository) RecordAttempt(rec lifecycle.AttemptRecord) {
	const insert = `
INSERT INTO render_history (request_id, widget_id, input, outcome, error_kind, message, duration_ms, cache_hit, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	cacheHit := 0
	if rec.CacheHit {
		cacheHit = 1
	}

	_, err := r.db.Exec(insert,
		rec.RequestID, rec.WidgetID, rec.Input, string(rec.Outcome),
		string(rec.ErrorKind), rec.Message, rec.Duration.Milliseconds(), cacheHit, rec.At)
	if err != nil {
		r.logger.Database().Error("Failed to record render attempt",
			"error", err.Error(), "requestId", rec.RequestID, "widgetId", rec.WidgetID)
		return
	}

	r.logger.Database().Debug("Render attempt recorded",
		"requestId", rec.RequestID, "outcome", string(rec.Outcome))
}

// Recent returns the most recent attempts, newest first.
func (r *Repository) Recent(limit int) ([]Entry, error) {
	const query = `
SELECT request_id, widget_id, input, outcome, COALESCE(error_kind, ''), COALESCE(message, ''), duration_ms, cache_hit, created_at
FROM render_history
ORDER BY created_at DESC
LIMIT ?`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query render history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var cacheHit int
		if err := rows.Scan(&e.RequestID, &e.WidgetID, &e.Input, &e.Outcome,
			&e.ErrorKind, &e.Message, &e.DurationMS, &cacheHit, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan render history row: %w", err)
		}
		e.CacheHit = cacheHit == 1
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// RecentDistinctInputs returns the most recently rendered distinct diagram
// inputs that succeeded, newest first. Used by startup warming.
func (r *Repository) RecentDistinctInputs(limit int) ([]string, error) {
	const query = `
SELECT input, MAX(created_at) AS latest
FROM render_history
WHERE outcome = ?
GROUP BY input
ORDER BY latest DESC
LIMIT ?`

	rows, err := r.db.Query(query, string(diagram.PhaseRendered), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct inputs: %w", err)
	}
	defer rows.Close()

	var inputs []string
	for rows.Next() {
		var input string
		var latest time.Time
		if err := rows.Scan(&input, &latest); err != nil {
			return nil, fmt.Errorf("failed to scan distinct input row: %w", err)
		}
		inputs = append(inputs, input)
	}

	return inputs, rows.Err()
}
