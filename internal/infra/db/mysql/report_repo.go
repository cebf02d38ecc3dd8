package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bryanwahyu/mailguard/internal/domain/discovery"
)

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

var _ discovery.Repository = (*ReportRepository)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_reports (
  id          VARCHAR(64)  NOT NULL PRIMARY KEY,
  started_at  DATETIME(3)  NOT NULL,
  finished_at DATETIME(3)  NOT NULL,
  scanned     INT          NOT NULL DEFAULT 0,
  discovered  INT          NOT NULL DEFAULT 0,
  dangerous   INT          NOT NULL DEFAULT 0,
  services    JSON         NOT NULL,
  report_url  VARCHAR(512) NOT NULL DEFAULT '',
  INDEX idx_reports_finished (finished_at)
) DEFAULT CHARSET=utf8mb4;`

// EnsureSchema bikin tabel kalau belum ada
func (r *ReportRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Save insert/update Report record
func (r *ReportRepository) Save(ctx context.Context, rep *discovery.Report) error {
	const q = `
INSERT INTO analysis_reports
(id, started_at, finished_at, scanned, discovered, dangerous, services, report_url)
VALUES (?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 finished_at=VALUES(finished_at),
 scanned=VALUES(scanned), discovered=VALUES(discovered), dangerous=VALUES(dangerous),
 services=VALUES(services), report_url=VALUES(report_url);
`
	services, err := encodeServices(rep.Services)
	if err != nil {
		return err
	}
	finished := rep.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	_, err = r.db.ExecContext(ctx, q,
		rep.ID, rep.StartedAt, finished,
		rep.Scanned, rep.Discovered, rep.Dangerous,
		services, rep.ReportURL,
	)
	return err
}

// Get by ID, nil kalau tidak ada
func (r *ReportRepository) Get(ctx context.Context, id discovery.ReportID) (*discovery.Report, error) {
	const q = `
SELECT id, started_at, finished_at, scanned, discovered, dangerous, services, report_url
FROM analysis_reports
WHERE id=? LIMIT 1;
`
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
ORDER BY finished_at DESC LIMIT ?;
`
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*discovery.Report, error) {
	var rep discovery.Report
	var raw []byte
	if err := row.Scan(
		&rep.ID, &rep.StartedAt, &rep.FinishedAt,
		&rep.Scanned, &rep.Discovered, &rep.Dangerous,
		&raw, &rep.ReportURL,
	); err != nil {
		return nil, err
	}
	services, err := decodeServices(raw)
	if err != nil {
		return nil, err
	}
	rep.Services = services
	return &rep, nil
}
