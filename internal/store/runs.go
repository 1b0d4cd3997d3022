package store

import (
	"context"
	"fmt"
	"time"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

type SourceRun struct {
	Key     string `json:"key"`
	Fetched int    `json:"fetched"`
	Merged  int    `json:"merged"`
	Error   string `json:"error,omitempty"`
}

type Run struct {
	ID         string      `json:"id"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt time.Time   `json:"finishedAt"`
	Status     string      `json:"status"`
	Error      string      `json:"error,omitempty"`
	TotalJobs  int         `json:"totalJobs"`
	Sources    []SourceRun `json:"sources"`
}

// RecordRun stores r and its per-source rows in one transaction.
func (d *DB) RecordRun(ctx context.Context, r Run) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (id, started_at, finished_at, status, error, total_jobs)
VALUES (?, ?, ?, ?, ?, ?);`,
		r.ID, r.StartedAt.UTC().Format(time.RFC3339Nano), r.FinishedAt.UTC().Format(time.RFC3339Nano),
		r.Status, r.Error, r.TotalJobs,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, s := range r.Sources {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO run_sources (run_id, source_key, fetched, merged, error)
VALUES (?, ?, ?, ?, ?);`,
			r.ID, s.Key, s.Fetched, s.Merged, s.Error,
		); err != nil {
			return fmt.Errorf("insert run source %s: %w", s.Key, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns up to limit runs, newest first, with their sources.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 500 {
		limit = 20
	}

	rows, err := d.Pool.QueryContext(ctx, `
SELECT id, started_at, finished_at, status, error, total_jobs
FROM runs
ORDER BY started_at DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	var runs []Run
	index := map[string]int{}
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.Status, &r.Error, &r.TotalJobs); err != nil {
			_ = rows.Close()
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		r.Sources = []SourceRun{}
		index[r.ID] = len(runs)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if len(runs) == 0 {
		return []Run{}, nil
	}

	srows, err := d.Pool.QueryContext(ctx, `
SELECT rs.run_id, rs.source_key, rs.fetched, rs.merged, rs.error
FROM run_sources rs
JOIN (SELECT id FROM runs ORDER BY started_at DESC LIMIT ?) r ON r.id = rs.run_id
ORDER BY rs.source_key;`, limit)
	if err != nil {
		return nil, fmt.Errorf("list run sources: %w", err)
	}
	defer srows.Close()

	for srows.Next() {
		var id string
		var s SourceRun
		if err := srows.Scan(&id, &s.Key, &s.Fetched, &s.Merged, &s.Error); err != nil {
			return nil, err
		}
		if i, ok := index[id]; ok {
			runs[i].Sources = append(runs[i].Sources, s)
		}
	}
	return runs, srows.Err()
}
