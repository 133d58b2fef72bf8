package db

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"harbormon/collector-service/biz/domain"
)

type ContainerRepository struct {
	db *Postgres
}

func NewContainerRepo(db *Postgres) *ContainerRepository {
	return &ContainerRepository{db}
}

// Upsert inserts or refreshes a container keyed by its runtime id. The
// internal id and original created_at survive updates, so repeated
// reconciliation of an unchanged fleet mints no new ids.
func (r *ContainerRepository) Upsert(ctx context.Context, c *domain.Container) (*domain.Container, error) {
	row := r.db.Pool.QueryRowContext(ctx, `
		INSERT INTO containers (runtime_id, name, image, status, ports, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (runtime_id) DO UPDATE SET
			name = EXCLUDED.name,
			image = EXCLUDED.image,
			status = EXCLUDED.status,
			ports = EXCLUDED.ports,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`,
		c.RuntimeID, c.Name, c.Image, c.Status.String(), c.Ports, c.CreatedAt, c.UpdatedAt)

	res := *c
	if err := row.Scan(&res.ID, &res.CreatedAt); err != nil {
		zap.L().Error("r.db.Pool.QueryRowContext (Upsert container)", zap.Error(err), zap.String("runtimeID", c.RuntimeID))
		return nil, domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}
	return &res, nil
}

func (r *ContainerRepository) ListAll(ctx context.Context) ([]domain.Container, error) {
	return r.list(ctx, `SELECT id, runtime_id, name, image, status, ports, created_at, updated_at FROM containers ORDER BY name`)
}

func (r *ContainerRepository) ListByStatus(ctx context.Context, status domain.ContainerStatus) ([]domain.Container, error) {
	return r.list(ctx,
		`SELECT id, runtime_id, name, image, status, ports, created_at, updated_at FROM containers WHERE status = $1 ORDER BY name`,
		status.String())
}

func (r *ContainerRepository) list(ctx context.Context, query string, args ...interface{}) ([]domain.Container, error) {
	rows, err := r.db.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		zap.L().Error("r.db.Pool.QueryContext (list containers)", zap.Error(err))
		return nil, domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}
	defer rows.Close()

	var res []domain.Container
	for rows.Next() {
		var c domain.Container
		var status string
		if err := rows.Scan(&c.ID, &c.RuntimeID, &c.Name, &c.Image, &status, &c.Ports, &c.CreatedAt, &c.UpdatedAt); err != nil {
			zap.L().Error("rows.Scan (list containers)", zap.Error(err))
			return nil, domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
		}
		c.Status = domain.ContainerStatusFromString(status)
		res = append(res, c)
	}
	return res, rows.Err()
}

// DeleteMissing removes every container whose runtime id is not in the
// observed set. Dependent metrics, alerts, and scans go with it via the
// cascade foreign keys. Callers must not invoke this with an empty set.
func (r *ContainerRepository) DeleteMissing(ctx context.Context, observedRuntimeIDs []string) (int64, error) {
	if len(observedRuntimeIDs) == 0 {
		return 0, domain.NewErrorf(domain.ErrBadParamInput, "refusing to delete against an empty observed set")
	}

	placeholders := make([]string, len(observedRuntimeIDs))
	args := make([]interface{}, len(observedRuntimeIDs))
	for i, id := range observedRuntimeIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`DELETE FROM containers WHERE runtime_id NOT IN (%s)`, strings.Join(placeholders, ", "))

	res, err := r.db.Pool.ExecContext(ctx, query, args...)
	if err != nil {
		zap.L().Error("r.db.Pool.ExecContext (DeleteMissing)", zap.Error(err))
		return 0, domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}
	return res.RowsAffected()
}
