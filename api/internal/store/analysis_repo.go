package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"first-aid/api/internal/injury"

	"github.com/google/uuid"
)

var ErrNotFound = sql.ErrNoRows

type AnalysisRepo struct{ DB *sql.DB }

func NewAnalysisRepo(db *sql.DB) *AnalysisRepo { return &AnalysisRepo{DB: db} }

// AnalysisRow is one stored run of the pipeline.
type AnalysisRow struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	ChatID     int64
	ImageHash  string
	Engine     string
	Model      string
	Overridden bool
	FailSafe   bool
	Bundle     injury.Bundle
}

const rowColumns = `id, created_at, coalesce(chat_id,0), image_hash, engine, model, overridden, fail_safe, bundle_json`

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (*AnalysisRow, error) {
	var (
		row AnalysisRow
		js  []byte
	)
	if err := s.Scan(&row.ID, &row.CreatedAt, &row.ChatID, &row.ImageHash, &row.Engine, &row.Model,
		&row.Overridden, &row.FailSafe, &js); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(js, &row.Bundle); err != nil {
		return nil, fmt.Errorf("bundle_json %s: %w", row.ID, err)
	}
	return &row, nil
}

// FindByHash returns the newest row for (image_hash, engine, model).
// With maxAge > 0 older rows count as missing. Fail-safe rows are never
// served from cache.
func (r *AnalysisRepo) FindByHash(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (*AnalysisRow, error) {
	q := `select ` + rowColumns + `
from injury_analyses
where image_hash = $1 and engine = $2 and model = $3 and not fail_safe
order by created_at desc
limit 1`
	row, err := scanRow(r.DB.QueryRowContext(ctx, q, imageHash, engine, model))
	if err != nil {
		return nil, err
	}
	if maxAge > 0 && time.Since(row.CreatedAt) > maxAge {
		return nil, ErrNotFound
	}
	return row, nil
}

// Upsert stores the row; on a (image_hash, engine, model) conflict the existing
// row is refreshed and keeps its id. The effective id and timestamp are
// written back into row.
func (r *AnalysisRepo) Upsert(ctx context.Context, row *AnalysisRow) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	js, err := json.Marshal(row.Bundle)
	if err != nil {
		return err
	}
	const q = `
insert into injury_analyses (
  id, chat_id, image_hash, engine, model,
  injury_type, severity, blood_level, confidence,
  overridden, fail_safe, bundle_json
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
on conflict (image_hash, engine, model) do update
set chat_id = excluded.chat_id,
    injury_type = excluded.injury_type,
    severity = excluded.severity,
    blood_level = excluded.blood_level,
    confidence = excluded.confidence,
    overridden = excluded.overridden,
    fail_safe = excluded.fail_safe,
    bundle_json = excluded.bundle_json,
    created_at = now()
returning id, created_at`
	b := row.Bundle
	return r.DB.QueryRowContext(ctx, q,
		row.ID, nullInt64(row.ChatID), row.ImageHash, row.Engine, row.Model,
		string(b.InjuryType), string(b.Details.Severity), string(b.Details.BloodLevel), b.Probability,
		row.Overridden, row.FailSafe, js,
	).Scan(&row.ID, &row.CreatedAt)
}

func (r *AnalysisRepo) Get(ctx context.Context, id uuid.UUID) (*AnalysisRow, error) {
	q := `select ` + rowColumns + ` from injury_analyses where id = $1`
	return scanRow(r.DB.QueryRowContext(ctx, q, id))
}

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// recentLimit maps a non-positive limit to the default and caps the rest.
func recentLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultRecentLimit
	case limit > maxRecentLimit:
		return maxRecentLimit
	}
	return limit
}

// Recent lists the newest rows first; limit is clamped to 1..100, 0 means 20.
func (r *AnalysisRepo) Recent(ctx context.Context, limit int) ([]AnalysisRow, error) {
	limit = recentLimit(limit)
	q := `select ` + rowColumns + ` from injury_analyses order by created_at desc limit $1`
	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]AnalysisRow, 0, limit)
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *row)
	}
	return out, rows.Err()
}

// PurgeOlderThan deletes rows older than age and reports how many went.
func (r *AnalysisRepo) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	if age <= 0 {
		return 0, errors.New("purge: age must be positive")
	}
	res, err := r.DB.ExecContext(ctx, `delete from injury_analyses where created_at < $1`, time.Now().Add(-age))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
