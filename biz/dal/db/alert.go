package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"harbormon/collector-service/biz/domain"
)

type AlertRepository struct {
	db *Postgres
}

func NewAlertRepo(db *Postgres) *AlertRepository {
	return &AlertRepository{db}
}

func (r *AlertRepository) Insert(ctx context.Context, a *domain.Alert) (*domain.Alert, error) {
	res := *a
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	err := r.db.Pool.QueryRowContext(ctx, `
		INSERT INTO alerts (severity, message, source, container_id, resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		string(res.Severity), res.Message, res.Source, res.ContainerID, res.Resolved, res.CreatedAt).Scan(&res.ID)
	if err != nil {
		zap.L().Error("r.db.Pool.QueryRowContext (Insert alert)", zap.Error(err))
		return nil, domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}
	return &res, nil
}

func (r *AlertRepository) Resolve(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.Pool.ExecContext(ctx, `UPDATE alerts SET resolved = TRUE WHERE id = $1`, id)
	if err != nil {
		zap.L().Error("r.db.Pool.ExecContext (Resolve alert)", zap.Error(err), zap.String("alertID", id.String()))
		return domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewErrorf(domain.ErrNotFound, "alert %s not found", id)
	}
	return nil
}

// UnresolvedSeverityCounts feeds the security score: nil containerID means
// every unresolved alert in the system, container-scoped or not.
func (r *AlertRepository) UnresolvedSeverityCounts(ctx context.Context, containerID *uuid.UUID) (int64, int64, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE severity = 'CRITICAL'),
			COUNT(*) FILTER (WHERE severity = 'HIGH')
		FROM alerts WHERE resolved = FALSE`
	var args []interface{}
	if containerID != nil {
		query += ` AND container_id = $1`
		args = append(args, *containerID)
	}

	var critical, high int64
	if err := r.db.Pool.QueryRowContext(ctx, query, args...).Scan(&critical, &high); err != nil {
		zap.L().Error("r.db.Pool.QueryRowContext (UnresolvedSeverityCounts)", zap.Error(err))
		return 0, 0, domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}
	return critical, high, nil
}

// Retention: only resolved alerts age out. An unresolved alert is an open
// issue and survives any horizon.
func (r *AlertRepository) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.Pool.ExecContext(ctx, `DELETE FROM alerts WHERE resolved = TRUE AND created_at < $1`, cutoff)
	if err != nil {
		zap.L().Error("r.db.Pool.ExecContext (DeleteResolvedBefore)", zap.Error(err))
		return 0, domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}
	return res.RowsAffected()
}

func (r *AlertRepository) CountResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.db.Pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts WHERE resolved = TRUE AND created_at < $1`, cutoff).Scan(&n)
	if err != nil {
		zap.L().Error("r.db.Pool.QueryRowContext (CountResolvedBefore)", zap.Error(err))
		return 0, domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}
	return n, nil
}
