package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"harbormon/collector-service/biz/domain"
)

// Broadcast channel keys. Container-scoped data goes to a per-container
// channel, everything else to a global one.
const (
	ChannelHost   = "telemetry.host"
	ChannelAlerts = "telemetry.alerts"
)

func ContainerChannel(id string) string {
	return "telemetry.container." + id
}

type ContainerRepository interface {
	Upsert(ctx context.Context, c *domain.Container) (*domain.Container, error)
	ListAll(ctx context.Context) ([]domain.Container, error)
	ListByStatus(ctx context.Context, status domain.ContainerStatus) ([]domain.Container, error)
	DeleteMissing(ctx context.Context, observedRuntimeIDs []string) (int64, error)
}

type MetricsRepository interface {
	InsertContainerMetric(ctx context.Context, m *domain.ContainerMetric) error
	InsertHostMetric(ctx context.Context, m *domain.HostMetric) error
}

type ContainerRuntimeAPI interface {
	ListContainers(ctx context.Context) ([]domain.RuntimeContainer, error)
	ContainerStatsLine(ctx context.Context, runtimeID string) (string, error)
}

// EventBroadcaster is the best-effort fan-out port. Publish failures are
// logged and discarded by callers; persistence never depends on it.
type EventBroadcaster interface {
	Publish(ctx context.Context, channel string, payload interface{}) error
}

type HostProbe interface {
	Sample(ctx context.Context) (*domain.HostMetric, error)
}

// CollectorService drives one collection cycle: reconcile the inventory
// against the runtime, sample the host, sample every running container,
// persist, then broadcast. Nothing inside a cycle is allowed to take the
// collection loop down.
type CollectorService struct {
	containers  ContainerRepository
	metrics     MetricsRepository
	runtime     ContainerRuntimeAPI
	broadcaster EventBroadcaster
	host        HostProbe

	// Pause between per-container stats queries so a large fleet does not
	// saturate the runtime's query interface.
	containerDelay time.Duration
}

func NewCollectorService(containers ContainerRepository, metrics MetricsRepository, runtime ContainerRuntimeAPI,
	broadcaster EventBroadcaster, host HostProbe, containerDelay time.Duration) *CollectorService {
	return &CollectorService{
		containers:     containers,
		metrics:        metrics,
		runtime:        runtime,
		broadcaster:    broadcaster,
		host:           host,
		containerDelay: containerDelay,
	}
}

// Run executes cycles on a fixed interval, once eagerly at startup. A cycle
// always finishes (or fails and logs) before the next is scheduled, so
// cycles never overlap.
func (s *CollectorService) Run(ctx context.Context, interval time.Duration) {
	s.RunCycle(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("collector loop stopped")
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle performs one collection round. It is idempotent and safe to
// invoke repeatedly; the triggering layer may call it directly.
func (s *CollectorService) RunCycle(ctx context.Context) *domain.CycleReport {
	report := &domain.CycleReport{StartedAt: time.Now().UTC()}

	observed, err := s.ReconcileInventory(ctx)
	if err != nil {
		zap.L().Error("s.ReconcileInventory", zap.Error(err))
		report.Errors = append(report.Errors, "reconcile: "+err.Error())
	}
	report.ContainersObserved = observed

	// The host CPU measurement blocks for about a second by design; run it
	// alongside container sampling and collect the outcome before returning.
	hostDone := make(chan error, 1)
	go func() {
		hostDone <- s.sampleHost(ctx)
	}()

	stored, ctrErrs := s.sampleContainers(ctx)
	report.SamplesStored = stored
	report.Errors = append(report.Errors, ctrErrs...)

	if err := <-hostDone; err != nil {
		zap.L().Error("host sampling", zap.Error(err))
		report.Errors = append(report.Errors, "host: "+err.Error())
	} else {
		report.HostSampled = true
	}

	report.FinishedAt = time.Now().UTC()
	zap.L().Info("collection cycle finished",
		zap.Int("containers_observed", report.ContainersObserved),
		zap.Int("samples_stored", report.SamplesStored),
		zap.Bool("host_sampled", report.HostSampled),
		zap.Int("errors", len(report.Errors)),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)))
	return report
}

// ReconcileInventory converges the persisted inventory toward the runtime's
// view: upsert every observed container keyed by its runtime id, then delete
// records whose runtime id was not observed. The delete is skipped outright
// for an empty observed set: an empty runtime response is far more likely a
// transient query failure than a genuinely empty fleet.
func (s *CollectorService) ReconcileInventory(ctx context.Context) (int, error) {
	observed, err := s.runtime.ListContainers(ctx)
	if err != nil {
		return 0, domain.WrapErrorf(err, domain.ErrInternalServerError, "runtime list containers")
	}

	now := time.Now().UTC()
	runtimeIDs := make([]string, 0, len(observed))
	for _, rc := range observed {
		runtimeIDs = append(runtimeIDs, rc.RuntimeID)
		_, err := s.containers.Upsert(ctx, &domain.Container{
			RuntimeID: rc.RuntimeID,
			Name:      rc.Name,
			Image:     rc.Image,
			Status:    rc.Status(),
			Ports:     rc.Ports,
			CreatedAt: rc.CreatedAt,
			UpdatedAt: now,
		})
		if err != nil {
			zap.L().Error("s.containers.Upsert", zap.Error(err), zap.String("runtimeID", rc.RuntimeID))
		}
	}

	if len(runtimeIDs) > 0 {
		deleted, err := s.containers.DeleteMissing(ctx, runtimeIDs)
		if err != nil {
			zap.L().Error("s.containers.DeleteMissing", zap.Error(err))
		} else if deleted > 0 {
			zap.L().Info("pruned containers no longer reported by the runtime", zap.Int64("deleted", deleted))
		}
	}
	return len(observed), nil
}

func (s *CollectorService) sampleHost(ctx context.Context) error {
	hm, err := s.host.Sample(ctx)
	if err != nil {
		return err
	}
	if err := s.metrics.InsertHostMetric(ctx, hm); err != nil {
		return err
	}
	s.broadcast(ctx, ChannelHost, hm)
	return nil
}

func (s *CollectorService) sampleContainers(ctx context.Context) (int, []string) {
	running, err := s.containers.ListByStatus(ctx, domain.ContainerStatusRUN)
	if err != nil {
		zap.L().Error("s.containers.ListByStatus", zap.Error(err))
		return 0, []string{"list running containers: " + err.Error()}
	}

	var stored int
	var errs []string
	for i, c := range running {
		if i > 0 && s.containerDelay > 0 {
			select {
			case <-time.After(s.containerDelay):
			case <-ctx.Done():
				return stored, errs
			}
		}
		if err := s.sampleOne(ctx, c); err != nil {
			// One bad container must not abort the rest of the fleet.
			zap.L().Warn("container sampling failed", zap.Error(err), zap.String("runtimeID", c.RuntimeID))
			errs = append(errs, fmt.Sprintf("container %s: %v", c.RuntimeID, err))
			continue
		}
		stored++
	}
	return stored, errs
}

func (s *CollectorService) sampleOne(ctx context.Context, c domain.Container) error {
	line, err := s.runtime.ContainerStatsLine(ctx, c.RuntimeID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(line) == "" {
		// Container stopped between the list and the stats query; no sample
		// this cycle, and that is not an error.
		zap.L().Debug("empty stats output, skipping sample", zap.String("runtimeID", c.RuntimeID))
		return nil
	}
	sample, ok := ParseStatsLine(line)
	if !ok {
		return domain.NewErrorf(domain.ErrBadParamInput, "malformed stats line %q", line)
	}

	metric := &domain.ContainerMetric{
		ContainerID:     c.ID,
		CPUUsagePct:     sample.CPUUsagePct,
		MemUsagePct:     sample.MemUsagePct,
		MemLimitBytes:   sample.MemLimitBytes,
		NetInBytes:      sample.NetInBytes,
		NetOutBytes:     sample.NetOutBytes,
		BlockReadBytes:  sample.BlockReadBytes,
		BlockWriteBytes: sample.BlockWriteBytes,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.metrics.InsertContainerMetric(ctx, metric); err != nil {
		return err
	}
	s.broadcast(ctx, ContainerChannel(c.ID.String()), metric)
	return nil
}

// broadcast is fire-and-forget: the sample is already persisted, so a dead
// subscriber system costs live-update latency, never data.
func (s *CollectorService) broadcast(ctx context.Context, channel string, payload interface{}) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Publish(ctx, channel, payload); err != nil {
		zap.L().Warn("broadcast dropped", zap.Error(err), zap.String("channel", channel))
	}
}
