package syncer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"listbridge/pkg/models"
)

// Run is one finished (or cancelled) sync run as stored in history.
type Run struct {
	ID         string             `json:"id"`
	Target     models.Platform    `json:"target"`
	Kind       models.Kind        `json:"kind"`
	State      State              `json:"state"`
	Total      int                `json:"total"`
	Succeeded  int                `json:"succeeded"`
	Failed     int                `json:"failed"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Errors     []models.ItemError `json:"errors,omitempty"`
}

// RunRepo persists sync run history in sqlite.
type RunRepo struct {
	DB *sql.DB
}

func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{DB: db}
}

// Record writes the run row and its per-item errors in one transaction.
func (r *RunRepo) Record(ctx context.Context, run Run, itemErrors []models.ItemError) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_runs (id, target, kind, state, total, succeeded, failed, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, string(run.Target), string(run.Kind), string(run.State),
		run.Total, run.Succeeded, run.Failed, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}

	for _, item := range itemErrors {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sync_run_errors (run_id, title, reason)
			VALUES (?, ?, ?)
		`, run.ID, item.Title, item.Reason); err != nil {
			return fmt.Errorf("insert run error: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record run: %w", err)
	}
	return nil
}

// List returns recent runs, newest first, without their error details.
func (r *RunRepo) List(ctx context.Context, limit, offset int) ([]Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, target, kind, state, total, succeeded, failed, started_at, finished_at
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := make([]Run, 0, limit)
	for rows.Next() {
		var run Run
		var target, kind, state string
		if err := rows.Scan(&run.ID, &target, &kind, &state,
			&run.Total, &run.Succeeded, &run.Failed, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		run.Target = models.Platform(target)
		run.Kind = models.Kind(kind)
		run.State = State(state)
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Get returns one run with its per-item errors, or nil when unknown.
func (r *RunRepo) Get(ctx context.Context, id string) (*Run, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, target, kind, state, total, succeeded, failed, started_at, finished_at
		FROM sync_runs
		WHERE id = ?
	`, id)

	var run Run
	var target, kind, state string
	if err := row.Scan(&run.ID, &target, &kind, &state,
		&run.Total, &run.Succeeded, &run.Failed, &run.StartedAt, &run.FinishedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	run.Target = models.Platform(target)
	run.Kind = models.Kind(kind)
	run.State = State(state)

	rows, err := r.DB.QueryContext(ctx, `
		SELECT title, reason
		FROM sync_run_errors
		WHERE run_id = ?
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get run errors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.ItemError
		if err := rows.Scan(&item.Title, &item.Reason); err != nil {
			return nil, fmt.Errorf("scan run error row: %w", err)
		}
		run.Errors = append(run.Errors, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return &run, nil
}
