package listcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"listbridge/pkg/models"
)

// Snapshot is one fetched list frozen at fetch time, so comparisons can be
// re-run and reports exported without hitting the platform again.
type Snapshot struct {
	ID        int64           `json:"id"`
	Platform  models.Platform `json:"platform"`
	Username  string          `json:"username"`
	Kind      models.Kind     `json:"kind"`
	Entries   []models.Entry  `json:"entries"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Repo stores list snapshots in sqlite, one JSON blob per fetch.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Save freezes a fetched list. Returns the snapshot row ID.
func (r *Repo) Save(ctx context.Context, platform models.Platform, username string, kind models.Kind, entries []models.Entry) (int64, error) {
	blob, err := json.Marshal(entries)
	if err != nil {
		return 0, fmt.Errorf("marshal snapshot: %w", err)
	}

	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO list_snapshots (platform, username, kind, entries, fetched_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, string(platform), username, string(kind), string(blob))
	if err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// Latest returns the newest snapshot for a platform/user/kind, or nil when
// none has been stored.
func (r *Repo) Latest(ctx context.Context, platform models.Platform, username string, kind models.Kind) (*Snapshot, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, platform, username, kind, entries, fetched_at
		FROM list_snapshots
		WHERE platform = ? AND username = ? AND kind = ?
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1
	`, string(platform), username, string(kind))
	return scanSnapshot(row)
}

func scanSnapshot(row *sql.Row) (*Snapshot, error) {
	var s Snapshot
	var platform, kind, blob string
	if err := row.Scan(&s.ID, &platform, &s.Username, &kind, &blob, &s.FetchedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	s.Platform = models.Platform(platform)
	s.Kind = models.Kind(kind)
	if err := json.Unmarshal([]byte(blob), &s.Entries); err != nil {
		return nil, fmt.Errorf("decode snapshot entries: %w", err)
	}
	return &s, nil
}

// Prune drops snapshots older than the retention window.
func (r *Repo) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM list_snapshots
		WHERE fetched_at < ?
	`, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
