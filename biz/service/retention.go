package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"harbormon/collector-service/biz/domain"
)

type MetricSweeper interface {
	DeleteMetricsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountMetricsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type AlertSweeper interface {
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type ScanSweeper interface {
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionService deletes telemetry, alerts, and scans older than the
// retention horizon. Unresolved alerts and non-completed scans are exempt
// regardless of age: an open issue or an undiagnosed failure is never
// silently discarded. Telemetry has no such exemption.
type RetentionService struct {
	metrics     MetricSweeper
	alerts      AlertSweeper
	scans       ScanSweeper
	defaultDays int
}

func NewRetentionService(metrics MetricSweeper, alerts AlertSweeper, scans ScanSweeper, defaultDays int) *RetentionService {
	if defaultDays <= 0 {
		defaultDays = 30
	}
	return &RetentionService{metrics: metrics, alerts: alerts, scans: scans, defaultDays: defaultDays}
}

// Run executes sweeps on the sweeper's own schedule, decoupled from
// collection. The cutoff predicate makes concurrent execution with a
// collection cycle safe: collection only inserts rows at "now".
func (s *RetentionService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("retention loop stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx, s.defaultDays, false)
		}
	}
}

// Sweep deletes (or, in dry-run mode, counts) each record class
// independently; one failing class never blocks the others, and partial
// failures are surfaced alongside the counts that did succeed.
func (s *RetentionService) Sweep(ctx context.Context, days int, dryRun bool) *domain.SweepReport {
	if days <= 0 {
		days = s.defaultDays
	}
	report := &domain.SweepReport{
		Cutoff: time.Now().UTC().AddDate(0, 0, -days),
		DryRun: dryRun,
	}

	var err error
	if dryRun {
		report.MetricsDeleted, err = s.metrics.CountMetricsBefore(ctx, report.Cutoff)
	} else {
		report.MetricsDeleted, err = s.metrics.DeleteMetricsBefore(ctx, report.Cutoff)
	}
	if err != nil {
		zap.L().Error("metrics sweep", zap.Error(err))
		report.Errors = append(report.Errors, "metrics: "+err.Error())
	}

	if dryRun {
		report.AlertsDeleted, err = s.alerts.CountResolvedBefore(ctx, report.Cutoff)
	} else {
		report.AlertsDeleted, err = s.alerts.DeleteResolvedBefore(ctx, report.Cutoff)
	}
	if err != nil {
		zap.L().Error("alerts sweep", zap.Error(err))
		report.Errors = append(report.Errors, "alerts: "+err.Error())
	}

	if dryRun {
		report.ScansDeleted, err = s.scans.CountCompletedBefore(ctx, report.Cutoff)
	} else {
		report.ScansDeleted, err = s.scans.DeleteCompletedBefore(ctx, report.Cutoff)
	}
	if err != nil {
		zap.L().Error("scans sweep", zap.Error(err))
		report.Errors = append(report.Errors, "scans: "+err.Error())
	}

	zap.L().Info("retention sweep finished",
		zap.Time("cutoff", report.Cutoff),
		zap.Bool("dry_run", dryRun),
		zap.Int64("metrics", report.MetricsDeleted),
		zap.Int64("alerts", report.AlertsDeleted),
		zap.Int64("scans", report.ScansDeleted),
		zap.Int("errors", len(report.Errors)))
	return report
}
