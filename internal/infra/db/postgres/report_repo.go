package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bryanwahyu/mailguard/internal/domain/discovery"
)

type ReportRepository struct{ db *sql.DB }

func NewReportRepository(db *sql.DB) *ReportRepository { return &ReportRepository{db: db} }

var _ discovery.Repository = (*ReportRepository)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_reports (
  id          TEXT        PRIMARY KEY,
  started_at  TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ NOT NULL,
  scanned     INTEGER     NOT NULL DEFAULT 0,
  discovered  INTEGER     NOT NULL DEFAULT 0,
  dangerous   INTEGER     NOT NULL DEFAULT 0,
  services    JSONB       NOT NULL DEFAULT '[]',
  report_url  TEXT        NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_reports_finished ON analysis_reports (finished_at DESC);`

func (r *ReportRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Save insert/update Report record
func (r *ReportRepository) Save(ctx context.Context, rep *discovery.Report) error {
	const q = `
INSERT INTO analysis_reports
(id, started_at, finished_at, scanned, discovered, dangerous, services, report_url)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
 finished_at = EXCLUDED.finished_at,
 scanned = EXCLUDED.scanned,
 discovered = EXCLUDED.discovered,
 dangerous = EXCLUDED.dangerous,
 services = EXCLUDED.services,
 report_url = EXCLUDED.report_url;`

	services := rep.Services
	if services == nil {
		services = []discovery.Service{}
	}
	raw, err := json.Marshal(services)
	if err != nil {
		return fmt.Errorf("encode services: %w", err)
	}
	finished := rep.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	_, err = r.db.ExecContext(ctx, q,
		rep.ID, rep.StartedAt, finished,
		rep.Scanned, rep.Discovered, rep.Dangerous,
		string(raw), rep.ReportURL,
	)
	return err
}

// Get by ID, nil kalau tidak ada
func (r *ReportRepository) Get(ctx context.Context, id discovery.ReportID) (*discovery.Report, error) {
	const q = `
SELECT id, started_at, finished_at, scanned, discovered, dangerous, services, report_url
FROM analysis_reports
WHERE id=$1
LIMIT 1;`
	rep, err := scanReport(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rep, err
}

// Latest ambil N laporan terakhir
func (r *ReportRepository) Latest(ctx context.Context, limit int) ([]*discovery.Report, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, started_at, finished_at, scanned, discovered, dangerous, services, report_url
FROM analysis_reports
ORDER BY finished_at DESC
LIMIT $1;`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*discovery.Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func scanReport(row interface{ Scan(dest ...any) error }) (*discovery.Report, error) {
	var rep discovery.Report
	var raw []byte
	if err := row.Scan(
		&rep.ID, &rep.StartedAt, &rep.FinishedAt,
		&rep.Scanned, &rep.Discovered, &rep.Dangerous,
		&raw, &rep.ReportURL,
	); err != nil {
		return nil, err
	}
	rep.Services = []discovery.Service{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rep.Services); err != nil {
			return nil, fmt.Errorf("decode services: %w", err)
		}
	}
	return &rep, nil
}
