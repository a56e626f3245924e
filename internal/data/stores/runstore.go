package stores

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/umerkhan95/sitefeed/internal/data/db"
)

// Run is one optimization submission as recorded locally.
type Run struct {
	ID             string    `json:"id"`
	JobID          string    `json:"job_id,omitempty"`
	URL            string    `json:"url"`
	State          string    `json:"state"`
	OriginalScore  *float64  `json:"original_score,omitempty"`
	OptimizedScore *float64  `json:"optimized_score,omitempty"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RunStore persists optimization runs in SQLite.
type RunStore struct {
	db  *db.DB
	now func() time.Time
}

// NewRunStore creates a new SQLite-backed run store.
func NewRunStore(db *db.DB) *RunStore {
	return &RunStore{db: db, now: time.Now}
}

// Save inserts the run or updates every mutable column of an existing one.
func (s *RunStore) Save(ctx context.Context, run Run) error {
	now := s.now()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}

	err := retryBusy(ctx, func() error {
		_, err := s.db.Conn().ExecContext(ctx, `
			INSERT INTO runs (id, job_id, url, state, original_score, optimized_score, error, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				job_id = excluded.job_id,
				state = excluded.state,
				original_score = excluded.original_score,
				optimized_score = excluded.optimized_score,
				error = excluded.error,
				updated_at = excluded.updated_at`,
			run.ID, run.JobID, run.URL, run.State,
			nullFloat(run.OriginalScore), nullFloat(run.OptimizedScore),
			run.Error, run.CreatedAt.UnixNano(), now.UnixNano(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("save run %q: %w", run.ID, err)
	}
	return nil
}

// Get returns a run by ID.
func (s *RunStore) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.Conn().QueryRowContext(ctx, `
		SELECT id, job_id, url, state, original_score, optimized_score, error, created_at, updated_at
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("get run %q: %w", id, err)
	}
	return run, nil
}

// List returns the most recent runs, newest first. limit <= 0 returns all.
func (s *RunStore) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT id, job_id, url, state, original_score, optimized_score, error, created_at, updated_at
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs scan: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run                 Run
		orig, opt           sql.NullFloat64
		createdAt, updateAt int64
	)
	if err := sc.Scan(&run.ID, &run.JobID, &run.URL, &run.State, &orig, &opt, &run.Error, &createdAt, &updateAt); err != nil {
		return Run{}, err
	}

	if orig.Valid {
		run.OriginalScore = &orig.Float64
	}
	if opt.Valid {
		run.OptimizedScore = &opt.Float64
	}
	run.CreatedAt = time.Unix(0, createdAt)
	run.UpdatedAt = time.Unix(0, updateAt)
	return run, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
