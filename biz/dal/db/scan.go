package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"harbormon/collector-service/biz/domain"
)

type ScanRepository struct {
	db *Postgres
}

func NewScanRepo(db *Postgres) *ScanRepository {
	return &ScanRepository{db}
}

func (r *ScanRepository) Insert(ctx context.Context, s *domain.Scan) (*domain.Scan, error) {
	res := *s
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	err := r.db.Pool.QueryRowContext(ctx, `
		INSERT INTO scans (container_id, scan_type, status, summary, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		res.ContainerID, res.ScanType, string(res.Status), res.Summary, res.CreatedAt).Scan(&res.ID)
	if err != nil {
		zap.L().Error("r.db.Pool.QueryRowContext (Insert scan)", zap.Error(err), zap.String("containerID", s.ContainerID.String()))
		return nil, domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}
	return &res, nil
}

func (r *ScanRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Scan, error) {
	var s domain.Scan
	var status string
	err := r.db.Pool.QueryRowContext(ctx, `
		SELECT id, container_id, scan_type, status, result, summary, report_url, duration_millis, created_at
		FROM scans WHERE id = $1`, id).Scan(
		&s.ID, &s.ContainerID, &s.ScanType, &status, &s.Result, &s.Summary, &s.ReportURL, &s.DurationMillis, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NewErrorf(domain.ErrNotFound, "scan %s not found", id)
	}
	if err != nil {
		zap.L().Error("r.db.Pool.QueryRowContext (Get scan)", zap.Error(err), zap.String("scanID", id.String()))
		return nil, domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}
	s.Status = domain.ScanStatus(status)
	return &s, nil
}

// Complete transitions running -> completed. The status guard in the WHERE
// clause is what makes terminal states immutable: an already-terminal scan
// matches zero rows and yields a conflict.
func (r *ScanRepository) Complete(ctx context.Context, id uuid.UUID, result []byte, summary string, durationMillis int64, reportURL *string) error {
	res, err := r.db.Pool.ExecContext(ctx, `
		UPDATE scans
		SET status = $2, result = $3, summary = $4, duration_millis = $5, report_url = $6
		WHERE id = $1 AND status = $7`,
		id, string(domain.ScanStatusCompleted), result, summary, durationMillis, reportURL, string(domain.ScanStatusRunning))
	if err != nil {
		zap.L().Error("r.db.Pool.ExecContext (Complete scan)", zap.Error(err), zap.String("scanID", id.String()))
		return domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewErrorf(domain.ErrConflict, "scan %s is not running", id)
	}
	return nil
}

func (r *ScanRepository) Fail(ctx context.Context, id uuid.UUID, summary string, durationMillis int64) error {
	res, err := r.db.Pool.ExecContext(ctx, `
		UPDATE scans
		SET status = $2, summary = $3, duration_millis = $4
		WHERE id = $1 AND status = $5`,
		id, string(domain.ScanStatusFailed), summary, durationMillis, string(domain.ScanStatusRunning))
	if err != nil {
		zap.L().Error("r.db.Pool.ExecContext (Fail scan)", zap.Error(err), zap.String("scanID", id.String()))
		return domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewErrorf(domain.ErrConflict, "scan %s is not running", id)
	}
	return nil
}

// Retention: only completed scans age out; failed and running scans are
// kept for diagnosis.
func (r *ScanRepository) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.Pool.ExecContext(ctx, `DELETE FROM scans WHERE status = $1 AND created_at < $2`,
		string(domain.ScanStatusCompleted), cutoff)
	if err != nil {
		zap.L().Error("r.db.Pool.ExecContext (DeleteCompletedBefore)", zap.Error(err))
		return 0, domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}
	return res.RowsAffected()
}

func (r *ScanRepository) CountCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.db.Pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans WHERE status = $1 AND created_at < $2`,
		string(domain.ScanStatusCompleted), cutoff).Scan(&n)
	if err != nil {
		zap.L().Error("r.db.Pool.QueryRowContext (CountCompletedBefore)", zap.Error(err))
		return 0, domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}
	return n, nil
}
