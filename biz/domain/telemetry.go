package domain

import (
	"time"

	"github.com/google/uuid"
)

// StatsSample is one parsed line of the runtime's stats output, still keyed
// by the runtime id. CPU and memory percentages come through verbatim; the
// byte quantities have already been normalized by the unit parser. A nil
// MemLimitBytes means the limit token was absent or unparseable, which must
// not be confused with a zero-byte cap.
type StatsSample struct {
	RuntimeID       string
	CPUUsagePct     float64
	MemUsagePct     float64
	MemLimitBytes   *float64
	NetInBytes      float64
	NetOutBytes     float64
	BlockReadBytes  *float64
	BlockWriteBytes *float64
}

// ContainerMetric is one persisted telemetry sample for one container and
// one collection cycle. Immutable once written.
type ContainerMetric struct {
	ID              int64     `json:"id"`
	ContainerID     uuid.UUID `json:"container_id"`
	CPUUsagePct     float64   `json:"cpu_usage_pct"`
	MemUsagePct     float64   `json:"mem_usage_pct"`
	MemLimitBytes   *float64  `json:"mem_limit_bytes"`
	NetInBytes      float64   `json:"net_in_bytes"`
	NetOutBytes     float64   `json:"net_out_bytes"`
	BlockReadBytes  *float64  `json:"block_read_bytes"`
	BlockWriteBytes *float64  `json:"block_write_bytes"`
	CreatedAt       time.Time `json:"created_at"`
}

// HostMetric is the host-wide counterpart, one per cycle. The network
// counters are cumulative since boot; consumers diff across samples when
// they want a rate.
type HostMetric struct {
	ID             int64     `json:"id"`
	CPUUsagePct    float64   `json:"cpu_usage_pct"`
	Load1          float64   `json:"load_1"`
	Load5          float64   `json:"load_5"`
	Load15         float64   `json:"load_15"`
	RAMUsedBytes   uint64    `json:"ram_used_bytes"`
	RAMFreeBytes   uint64    `json:"ram_free_bytes"`
	RAMTotalBytes  uint64    `json:"ram_total_bytes"`
	RAMUsagePct    float64   `json:"ram_usage_pct"`
	DiskUsedBytes  uint64    `json:"disk_used_bytes"`
	DiskFreeBytes  uint64    `json:"disk_free_bytes"`
	DiskTotalBytes uint64    `json:"disk_total_bytes"`
	DiskUsagePct   float64   `json:"disk_usage_pct"`
	NetInBytes     uint64    `json:"net_in_bytes"`
	NetOutBytes    uint64    `json:"net_out_bytes"`
	CreatedAt      time.Time `json:"created_at"`
}

// CycleReport summarizes one collection cycle for the triggering layer.
// Errors entries are prefixed with the sub-step that failed.
type CycleReport struct {
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
	ContainersObserved int       `json:"containers_observed"`
	SamplesStored      int       `json:"samples_stored"`
	HostSampled        bool      `json:"host_sampled"`
	Errors             []string  `json:"errors"`
}

// SweepReport is the outcome of one retention sweep. In dry-run mode the
// counts hold what would have been deleted.
type SweepReport struct {
	Cutoff         time.Time `json:"cutoff"`
	DryRun         bool      `json:"dry_run"`
	MetricsDeleted int64     `json:"metrics_deleted"`
	AlertsDeleted  int64     `json:"alerts_deleted"`
	ScansDeleted   int64     `json:"scans_deleted"`
	Errors         []string  `json:"errors"`
}
