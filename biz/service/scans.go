package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"harbormon/collector-service/biz/domain"
)

type ScanRepository interface {
	Insert(ctx context.Context, s *domain.Scan) (*domain.Scan, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Scan, error)
	// Complete and Fail transition a scan out of the running state; both
	// return domain.ErrConflict when the scan is already terminal.
	Complete(ctx context.Context, id uuid.UUID, result []byte, summary string, durationMillis int64, reportURL *string) error
	Fail(ctx context.Context, id uuid.UUID, summary string, durationMillis int64) error
}

// ScanArtifactStore uploads the raw findings payload somewhere durable and
// returns a retrieval URL.
type ScanArtifactStore interface {
	UploadReport(ctx context.Context, scanID uuid.UUID, payload []byte) (string, error)
}

// ScanService owns the scan lifecycle. The scanner itself is an external
// collaborator: findings arrive through the triggering layer and this
// service records them, archives the raw report, and hands HIGH/CRITICAL
// findings to the alert deriver.
type ScanService struct {
	scans     ScanRepository
	artifacts ScanArtifactStore
	alerts    *AlertService
}

func NewScanService(scans ScanRepository, artifacts ScanArtifactStore, alerts *AlertService) *ScanService {
	return &ScanService{scans: scans, artifacts: artifacts, alerts: alerts}
}

func (s *ScanService) StartScan(ctx context.Context, containerID uuid.UUID, scanType string) (*domain.Scan, error) {
	scan, err := s.scans.Insert(ctx, &domain.Scan{
		ContainerID: containerID,
		ScanType:    scanType,
		Status:      domain.ScanStatusRunning,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, domain.WrapErrorf(err, domain.ErrInternalServerError, "insert scan")
	}
	zap.L().Info("scan started", zap.String("scanID", scan.ID.String()), zap.String("type", scanType))
	return scan, nil
}

// CompleteScan moves a running scan to completed, archives the raw findings,
// and derives alerts. The archive upload is best-effort: a dead object store
// must not lose the scan result itself.
func (s *ScanService) CompleteScan(ctx context.Context, scanID uuid.UUID, scanner string, findings []domain.Finding, summary string, durationMillis int64) error {
	scan, err := s.scans.Get(ctx, scanID)
	if err != nil {
		return err
	}

	result, err := json.Marshal(findings)
	if err != nil {
		return domain.WrapErrorf(err, domain.ErrBadParamInput, "marshal findings")
	}

	var reportURL *string
	if s.artifacts != nil {
		if url, err := s.artifacts.UploadReport(ctx, scanID, result); err != nil {
			zap.L().Warn("scan report upload failed", zap.Error(err), zap.String("scanID", scanID.String()))
		} else {
			reportURL = &url
		}
	}

	if err := s.scans.Complete(ctx, scanID, result, summary, durationMillis, reportURL); err != nil {
		return err
	}

	if _, err := s.alerts.DeriveFromFindings(ctx, scan.ContainerID, scanner, findings); err != nil {
		// The scan record is already terminal; alert persistence problems
		// are reported but do not undo the completion.
		zap.L().Error("alert derivation after scan completion", zap.Error(err), zap.String("scanID", scanID.String()))
		return err
	}
	zap.L().Info("scan completed", zap.String("scanID", scanID.String()), zap.Int("findings", len(findings)))
	return nil
}

func (s *ScanService) FailScan(ctx context.Context, scanID uuid.UUID, reason string, durationMillis int64) error {
	if err := s.scans.Fail(ctx, scanID, reason, durationMillis); err != nil {
		return err
	}
	zap.L().Warn("scan failed", zap.String("scanID", scanID.String()), zap.String("reason", reason))
	return nil
}
