package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"harbormon/collector-service/biz/domain"
)

type MetricsRepository struct {
	db *Postgres
}

func NewMetricsRepo(db *Postgres) *MetricsRepository {
	return &MetricsRepository{db}
}

func (r *MetricsRepository) InsertContainerMetric(ctx context.Context, m *domain.ContainerMetric) error {
	err := r.db.Pool.QueryRowContext(ctx, `
		INSERT INTO container_metrics
			(container_id, cpu_usage_pct, mem_usage_pct, mem_limit_bytes, net_in_bytes, net_out_bytes, block_read_bytes, block_write_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		m.ContainerID, m.CPUUsagePct, m.MemUsagePct, m.MemLimitBytes, m.NetInBytes, m.NetOutBytes,
		m.BlockReadBytes, m.BlockWriteBytes, m.CreatedAt).Scan(&m.ID)
	if err != nil {
		zap.L().Error("r.db.Pool.QueryRowContext (InsertContainerMetric)", zap.Error(err), zap.String("containerID", m.ContainerID.String()))
		return domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}
	return nil
}

func (r *MetricsRepository) InsertHostMetric(ctx context.Context, m *domain.HostMetric) error {
	err := r.db.Pool.QueryRowContext(ctx, `
		INSERT INTO host_metrics
			(cpu_usage_pct, load_1, load_5, load_15,
			 ram_used_bytes, ram_free_bytes, ram_total_bytes, ram_usage_pct,
			 disk_used_bytes, disk_free_bytes, disk_total_bytes, disk_usage_pct,
			 net_in_bytes, net_out_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		m.CPUUsagePct, m.Load1, m.Load5, m.Load15,
		m.RAMUsedBytes, m.RAMFreeBytes, m.RAMTotalBytes, m.RAMUsagePct,
		m.DiskUsedBytes, m.DiskFreeBytes, m.DiskTotalBytes, m.DiskUsagePct,
		m.NetInBytes, m.NetOutBytes, m.CreatedAt).Scan(&m.ID)
	if err != nil {
		zap.L().Error("r.db.Pool.QueryRowContext (InsertHostMetric)", zap.Error(err))
		return domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}
	return nil
}

func (r *MetricsRepository) LatestHostMetric(ctx context.Context) (*domain.HostMetric, error) {
	var m domain.HostMetric
	err := r.db.Pool.QueryRowContext(ctx, `
		SELECT id, cpu_usage_pct, load_1, load_5, load_15,
		       ram_used_bytes, ram_free_bytes, ram_total_bytes, ram_usage_pct,
		       disk_used_bytes, disk_free_bytes, disk_total_bytes, disk_usage_pct,
		       net_in_bytes, net_out_bytes, created_at
		FROM host_metrics ORDER BY created_at DESC LIMIT 1`).Scan(
		&m.ID, &m.CPUUsagePct, &m.Load1, &m.Load5, &m.Load15,
		&m.RAMUsedBytes, &m.RAMFreeBytes, &m.RAMTotalBytes, &m.RAMUsagePct,
		&m.DiskUsedBytes, &m.DiskFreeBytes, &m.DiskTotalBytes, &m.DiskUsagePct,
		&m.NetInBytes, &m.NetOutBytes, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NewErrorf(domain.ErrNotFound, "no host metrics collected yet")
	}
	if err != nil {
		zap.L().Error("r.db.Pool.QueryRowContext (LatestHostMetric)", zap.Error(err))
		return nil, domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}
	return &m, nil
}

// Telemetry retention has no exemptions: both container and host samples
// older than the cutoff go, referenced by an alert or not.
func (r *MetricsRepository) DeleteMetricsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for _, table := range []string{"container_metrics", "host_metrics"} {
		res, err := r.db.Pool.ExecContext(ctx, `DELETE FROM `+table+` WHERE created_at < $1`, cutoff)
		if err != nil {
			zap.L().Error("r.db.Pool.ExecContext (DeleteMetricsBefore)", zap.Error(err), zap.String("table", table))
			return total, domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func (r *MetricsRepository) CountMetricsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for _, table := range []string{"container_metrics", "host_metrics"} {
		var n int64
		if err := r.db.Pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE created_at < $1`, cutoff).Scan(&n); err != nil {
			zap.L().Error("r.db.Pool.QueryRowContext (CountMetricsBefore)", zap.Error(err), zap.String("table", table))
			return total, domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
		}
		total += n
	}
	return total, nil
}
