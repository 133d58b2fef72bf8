package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"harbormon/collector-service/biz/domain"
)

// fakeStore is an in-memory stand-in for the containers and metrics tables,
// including the cascade from a container row to its metric rows.
type fakeStore struct {
	mu               sync.Mutex
	containers       map[string]*domain.Container // keyed by runtime id
	containerMetrics []domain.ContainerMetric
	hostMetrics      []domain.HostMetric

	upsertErr error
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{containers: make(map[string]*domain.Container)}
}

func (f *fakeStore) Upsert(ctx context.Context, c *domain.Container) (*domain.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if existing, ok := f.containers[c.RuntimeID]; ok {
		existing.Name = c.Name
		existing.Image = c.Image
		existing.Status = c.Status
		existing.Ports = c.Ports
		existing.UpdatedAt = c.UpdatedAt
		cp := *existing
		return &cp, nil
	}
	stored := *c
	stored.ID = uuid.New()
	f.containers[c.RuntimeID] = &stored
	cp := stored
	return &cp, nil
}

func (f *fakeStore) ListAll(ctx context.Context) ([]domain.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Container
	for _, c := range f.containers {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeStore) ListByStatus(ctx context.Context, status domain.ContainerStatus) ([]domain.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Container
	for _, c := range f.containers {
		if c.Status == status {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteMissing(ctx context.Context, observedRuntimeIDs []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(observedRuntimeIDs) == 0 {
		return 0, domain.NewErrorf(domain.ErrBadParamInput, "refusing to delete against an empty observed set")
	}
	observed := make(map[string]struct{}, len(observedRuntimeIDs))
	for _, id := range observedRuntimeIDs {
		observed[id] = struct{}{}
	}
	var deleted int64
	for runtimeID, c := range f.containers {
		if _, ok := observed[runtimeID]; ok {
			continue
		}
		kept := f.containerMetrics[:0]
		for _, m := range f.containerMetrics {
			if m.ContainerID != c.ID {
				kept = append(kept, m)
			}
		}
		f.containerMetrics = kept
		delete(f.containers, runtimeID)
		deleted++
	}
	return deleted, nil
}

func (f *fakeStore) InsertContainerMetric(ctx context.Context, m *domain.ContainerMetric) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	m.ID = int64(len(f.containerMetrics) + 1)
	f.containerMetrics = append(f.containerMetrics, *m)
	return nil
}

func (f *fakeStore) InsertHostMetric(ctx context.Context, m *domain.HostMetric) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.hostMetrics = append(f.hostMetrics, *m)
	return nil
}

func (f *fakeStore) DeleteMetricsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	keptCtr := f.containerMetrics[:0]
	for _, m := range f.containerMetrics {
		if m.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		keptCtr = append(keptCtr, m)
	}
	f.containerMetrics = keptCtr
	keptHost := f.hostMetrics[:0]
	for _, m := range f.hostMetrics {
		if m.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		keptHost = append(keptHost, m)
	}
	f.hostMetrics = keptHost
	return deleted, nil
}

func (f *fakeStore) CountMetricsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.containerMetrics {
		if m.CreatedAt.Before(cutoff) {
			n++
		}
	}
	for _, m := range f.hostMetrics {
		if m.CreatedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) metricsFor(id uuid.UUID) []domain.ContainerMetric {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ContainerMetric
	for _, m := range f.containerMetrics {
		if m.ContainerID == id {
			out = append(out, m)
		}
	}
	return out
}

type fakeRuntime struct {
	containers []domain.RuntimeContainer
	statsLines map[string]string
	listErr    error
	statsErr   error
}

func (f *fakeRuntime) ListContainers(ctx context.Context) ([]domain.RuntimeContainer, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.containers, nil
}

func (f *fakeRuntime) ContainerStatsLine(ctx context.Context, runtimeID string) (string, error) {
	if f.statsErr != nil {
		return "", f.statsErr
	}
	return f.statsLines[runtimeID], nil
}

type broadcastEvent struct {
	channel string
	payload interface{}
}

type recordingBroadcaster struct {
	mu         sync.Mutex
	events     []broadcastEvent
	publishErr error
}

func (f *recordingBroadcaster) Publish(ctx context.Context, channel string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.events = append(f.events, broadcastEvent{channel: channel, payload: payload})
	return nil
}

func (f *recordingBroadcaster) channels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.channel)
	}
	return out
}

type fakeHostProbe struct {
	metric *domain.HostMetric
	err    error
}

func (f *fakeHostProbe) Sample(ctx context.Context) (*domain.HostMetric, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.metric != nil {
		cp := *f.metric
		cp.CreatedAt = time.Now().UTC()
		return &cp, nil
	}
	return &domain.HostMetric{CPUUsagePct: 12.5, CreatedAt: time.Now().UTC()}, nil
}

type fakeAlertRepo struct {
	mu        sync.Mutex
	alerts    map[uuid.UUID]*domain.Alert
	insertErr error
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{alerts: make(map[uuid.UUID]*domain.Alert)}
}

func (f *fakeAlertRepo) Insert(ctx context.Context, a *domain.Alert) (*domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	stored := *a
	stored.ID = uuid.New()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	f.alerts[stored.ID] = &stored
	cp := stored
	return &cp, nil
}

func (f *fakeAlertRepo) Resolve(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.alerts[id]
	if !ok {
		return domain.NewErrorf(domain.ErrNotFound, "alert %s not found", id)
	}
	a.Resolved = true
	return nil
}

func (f *fakeAlertRepo) UnresolvedSeverityCounts(ctx context.Context, containerID *uuid.UUID) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var critical, high int64
	for _, a := range f.alerts {
		if a.Resolved {
			continue
		}
		if containerID != nil && (a.ContainerID == nil || *a.ContainerID != *containerID) {
			continue
		}
		switch a.Severity {
		case domain.SeverityCritical:
			critical++
		case domain.SeverityHigh:
			high++
		}
	}
	return critical, high, nil
}

func (f *fakeAlertRepo) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, a := range f.alerts {
		if a.Resolved && a.CreatedAt.Before(cutoff) {
			delete(f.alerts, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeAlertRepo) CountResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, a := range f.alerts {
		if a.Resolved && a.CreatedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []domain.Alert
	err  error
}

func (f *fakeNotifier) SendCriticalAlert(ctx context.Context, a *domain.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, *a)
	return nil
}

type fakeScanRepo struct {
	mu    sync.Mutex
	scans map[uuid.UUID]*domain.Scan
}

func newFakeScanRepo() *fakeScanRepo {
	return &fakeScanRepo{scans: make(map[uuid.UUID]*domain.Scan)}
}

func (f *fakeScanRepo) Insert(ctx context.Context, s *domain.Scan) (*domain.Scan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *s
	stored.ID = uuid.New()
	f.scans[stored.ID] = &stored
	cp := stored
	return &cp, nil
}

func (f *fakeScanRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Scan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scans[id]
	if !ok {
		return nil, domain.NewErrorf(domain.ErrNotFound, "scan %s not found", id)
	}
	cp := *s
	return &cp, nil
}

func (f *fakeScanRepo) Complete(ctx context.Context, id uuid.UUID, result []byte, summary string, durationMillis int64, reportURL *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scans[id]
	if !ok || s.Status != domain.ScanStatusRunning {
		return domain.NewErrorf(domain.ErrConflict, "scan %s is not running", id)
	}
	s.Status = domain.ScanStatusCompleted
	s.Result = result
	s.Summary = summary
	s.DurationMillis = &durationMillis
	s.ReportURL = reportURL
	return nil
}

func (f *fakeScanRepo) Fail(ctx context.Context, id uuid.UUID, summary string, durationMillis int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scans[id]
	if !ok || s.Status != domain.ScanStatusRunning {
		return domain.NewErrorf(domain.ErrConflict, "scan %s is not running", id)
	}
	s.Status = domain.ScanStatusFailed
	s.Summary = summary
	s.DurationMillis = &durationMillis
	return nil
}

func (f *fakeScanRepo) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, s := range f.scans {
		if s.Status == domain.ScanStatusCompleted && s.CreatedAt.Before(cutoff) {
			delete(f.scans, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeScanRepo) CountCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.scans {
		if s.Status == domain.ScanStatusCompleted && s.CreatedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

type fakeArtifactStore struct {
	mu      sync.Mutex
	uploads map[uuid.UUID][]byte
	err     error
}

func newFakeArtifactStore() *fakeArtifactStore {
	return &fakeArtifactStore{uploads: make(map[uuid.UUID][]byte)}
}

func (f *fakeArtifactStore) UploadReport(ctx context.Context, scanID uuid.UUID, payload []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.uploads[scanID] = payload
	return "http://store.local/scan-reports/scans/" + scanID.String() + ".json", nil
}
