package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrSnapshotNotFound reports a lookup for a name that was never saved.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotMeta is the listing row: everything but the body.
type SnapshotMeta struct {
	Name      string    `json:"name"`
	Frame     int64     `json:"frame"`
	SimTime   float64   `json:"simTime"`
	Digest    string    `json:"digest"`
	CreatedAt time.Time `json:"createdAt"`
}

// SnapshotRepo stores canonical state dumps keyed by name. Saving an
// existing name overwrites it.
type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save upserts one snapshot.
func (r *SnapshotRepo) Save(ctx context.Context, meta SnapshotMeta, body []byte) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO snapshots (name, frame, sim_time, digest, body, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (name) DO UPDATE
		 SET frame = $2, sim_time = $3, digest = $4, body = $5, created_at = now()`,
		meta.Name, meta.Frame, meta.SimTime, meta.Digest, body)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", meta.Name, err)
	}
	return nil
}

// Load returns the stored body and metadata for a name.
func (r *SnapshotRepo) Load(ctx context.Context, name string) (SnapshotMeta, []byte, error) {
	var meta SnapshotMeta
	var body []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT name, frame, sim_time, digest, body, created_at
		 FROM snapshots WHERE name = $1`, name,
	).Scan(&meta.Name, &meta.Frame, &meta.SimTime, &meta.Digest, &body, &meta.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SnapshotMeta{}, nil, ErrSnapshotNotFound
	}
	if err != nil {
		return SnapshotMeta{}, nil, fmt.Errorf("load snapshot %s: %w", name, err)
	}
	return meta, body, nil
}

// List returns metadata for every stored snapshot, newest first.
func (r *SnapshotRepo) List(ctx context.Context) ([]SnapshotMeta, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT name, frame, sim_time, digest, created_at
		 FROM snapshots ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotMeta
	for rows.Next() {
		var m SnapshotMeta
		if err := rows.Scan(&m.Name, &m.Frame, &m.SimTime, &m.Digest, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes one snapshot by name.
func (r *SnapshotRepo) Delete(ctx context.Context, name string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM snapshots WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}
