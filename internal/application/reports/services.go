package reports

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/mailguard/internal/application"
	"github.com/bryanwahyu/mailguard/internal/domain/discovery"
	"github.com/bryanwahyu/mailguard/internal/domain/grading"
	"github.com/bryanwahyu/mailguard/internal/logger"
)

// Service persists finished analysis runs. Artifacts and Cache are optional;
// without a Repo every query returns discovery.ErrPersistenceDisabled.
type Service struct {
	Repo      discovery.Repository
	Artifacts discovery.ArtifactStore
	Cache     discovery.ReportCache
	Clock     application.Clock
}

// Record upload JSON laporan -> simpan ke repo -> cache sebagai laporan terakhir
func (s *Service) Record(ctx context.Context, run discovery.Run) (*discovery.Report, error) {
	report := &discovery.Report{
		ID:         discovery.ReportID(uuid.NewString()),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Scanned:    run.Scanned,
		Discovered: len(run.Services),
		Dangerous:  discovery.CountGrade(run.Services, grading.Worst),
		Services:   run.Services,
	}
	if report.FinishedAt.IsZero() && s.Clock != nil {
		report.FinishedAt = s.Clock.Now()
	}

	if s.Artifacts != nil {
		body, err := json.Marshal(report)
		if err != nil {
			return nil, fmt.Errorf("marshal report: %w", err)
		}
		key := fmt.Sprintf("reports/%s/%s.json", report.FinishedAt.UTC().Format("2006/01"), report.ID)
		url, err := s.Artifacts.Put(ctx, key, body, "application/json")
		if err != nil {
			return nil, fmt.Errorf("upload report: %w", err)
		}
		report.ReportURL = url
	}

	if s.Repo != nil {
		if err := s.Repo.Save(ctx, report); err != nil {
			return nil, fmt.Errorf("save report: %w", err)
		}
	}

	if s.Cache != nil {
		// cache miss is harmless, the repo stays authoritative
		if err := s.Cache.SetLatest(ctx, report); err != nil {
			logger.Warn("failed to cache latest report", zap.String("report_id", string(report.ID)), zap.Error(err))
		}
	}

	logger.Info("analysis report recorded",
		zap.String("report_id", string(report.ID)),
		zap.Int("discovered", report.Discovered),
		zap.String("report_url", report.ReportURL),
	)
	return report, nil
}

// Latest ambil N laporan terakhir
func (s *Service) Latest(ctx context.Context, limit int) ([]*discovery.Report, error) {
	if s.Repo == nil {
		return nil, discovery.ErrPersistenceDisabled
	}
	if limit == 1 && s.Cache != nil {
		r, ok, err := s.Cache.Latest(ctx)
		if err != nil {
			logger.Warn("latest report cache read failed", zap.Error(err))
		} else if ok {
			return []*discovery.Report{r}, nil
		}
	}
	return s.Repo.Latest(ctx, limit)
}

// Get ambil 1 laporan by id
func (s *Service) Get(ctx context.Context, id discovery.ReportID) (*discovery.Report, error) {
	if s.Repo == nil {
		return nil, discovery.ErrPersistenceDisabled
	}
	r, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("report %s: %w", id, discovery.ErrNotFound)
	}
	return r, nil
}
