package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harbormon/collector-service/biz/domain"
)

func runtimeContainer(id, name string, running bool) domain.RuntimeContainer {
	raw := "Exited (0) 2 hours ago"
	if running {
		raw = "Up 2 hours"
	}
	return domain.RuntimeContainer{
		RuntimeID: id,
		Name:      name,
		Image:     "nginx:latest",
		RawStatus: raw,
		Ports:     "0.0.0.0:8080->80/tcp",
		Running:   running,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
}

const statsLineA = "ctr-a 0.50% 2.1MiB / 512MiB 0.41% 1.2kB / 800B 3MB / 1MB"

func TestRunCycleStoresSamplesForRunningContainersOnly(t *testing.T) {
	store := newFakeStore()
	runtime := &fakeRuntime{
		containers: []domain.RuntimeContainer{
			runtimeContainer("ctr-a", "web", true),
			runtimeContainer("ctr-b", "worker", false),
		},
		statsLines: map[string]string{"ctr-a": statsLineA},
	}
	broadcaster := &recordingBroadcaster{}
	svc := NewCollectorService(store, store, runtime, broadcaster, &fakeHostProbe{}, 0)

	report := svc.RunCycle(context.Background())

	assert.Equal(t, 2, report.ContainersObserved)
	assert.Equal(t, 1, report.SamplesStored)
	assert.True(t, report.HostSampled)
	assert.Empty(t, report.Errors)

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.Len(t, store.containerMetrics, 1)
	m := store.containerMetrics[0]
	assert.InDelta(t, 0.50, m.CPUUsagePct, 0.001)
	require.NotNil(t, m.MemLimitBytes)
	assert.InDelta(t, 512*1024*1024, *m.MemLimitBytes, 0.001)
	require.Len(t, store.hostMetrics, 1)

	channels := broadcaster.channels()
	assert.Contains(t, channels, ChannelHost)
	assert.Contains(t, channels, ContainerChannel(m.ContainerID.String()))
}

func TestRunCyclePrunesDepartedContainersWithTheirMetrics(t *testing.T) {
	store := newFakeStore()
	runtime := &fakeRuntime{
		containers: []domain.RuntimeContainer{
			runtimeContainer("ctr-a", "web", true),
			runtimeContainer("ctr-b", "worker", false),
		},
		statsLines: map[string]string{"ctr-a": statsLineA},
	}
	svc := NewCollectorService(store, store, runtime, nil, &fakeHostProbe{}, 0)
	svc.RunCycle(context.Background())

	idA := store.containers["ctr-a"].ID
	require.NotEmpty(t, store.metricsFor(idA))

	// Next observation: only B remains. A and its samples must go.
	runtime.containers = []domain.RuntimeContainer{runtimeContainer("ctr-b", "worker", false)}
	svc.RunCycle(context.Background())

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "ctr-b", all[0].RuntimeID)
	assert.Empty(t, store.metricsFor(idA))
}

func TestReconcileSkipsDeleteOnEmptyObservedSet(t *testing.T) {
	store := newFakeStore()
	runtime := &fakeRuntime{containers: []domain.RuntimeContainer{runtimeContainer("ctr-a", "web", true)}}
	svc := NewCollectorService(store, store, runtime, nil, &fakeHostProbe{}, 0)

	observed, err := svc.ReconcileInventory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, observed)

	// A transient empty runtime response must not wipe the inventory.
	runtime.containers = nil
	observed, err = svc.ReconcileInventory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, observed)

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestReconcileIsIdempotent(t *testing.T) {
	store := newFakeStore()
	runtime := &fakeRuntime{containers: []domain.RuntimeContainer{runtimeContainer("ctr-a", "web", true)}}
	svc := NewCollectorService(store, store, runtime, nil, &fakeHostProbe{}, 0)

	_, err := svc.ReconcileInventory(context.Background())
	require.NoError(t, err)
	firstID := store.containers["ctr-a"].ID

	_, err = svc.ReconcileInventory(context.Background())
	require.NoError(t, err)

	all, _ := store.ListAll(context.Background())
	require.Len(t, all, 1)
	assert.Equal(t, firstID, all[0].ID, "repeated observation must keep the internal id")
}

func TestRunCycleRuntimeFailureIsReportedNotFatal(t *testing.T) {
	store := newFakeStore()
	runtime := &fakeRuntime{listErr: errors.New("daemon unreachable")}
	svc := NewCollectorService(store, store, runtime, nil, &fakeHostProbe{}, 0)

	report := svc.RunCycle(context.Background())

	assert.Equal(t, 0, report.ContainersObserved)
	assert.True(t, report.HostSampled, "host sampling proceeds when the runtime is down")
	require.NotEmpty(t, report.Errors)
	assert.Contains(t, report.Errors[0], "reconcile:")
}

func TestRunCycleOneBadContainerDoesNotAbortTheRest(t *testing.T) {
	store := newFakeStore()
	runtime := &fakeRuntime{
		containers: []domain.RuntimeContainer{
			runtimeContainer("ctr-a", "web", true),
			runtimeContainer("ctr-bad", "broken", true),
			runtimeContainer("ctr-c", "cache", true),
		},
		statsLines: map[string]string{
			"ctr-a":   statsLineA,
			"ctr-bad": "garbage not a stats line",
			"ctr-c":   "ctr-c 1.00% 10MiB / 512MiB 1.95% 0B / 0B 0B / 0B",
		},
	}
	svc := NewCollectorService(store, store, runtime, nil, &fakeHostProbe{}, 0)

	report := svc.RunCycle(context.Background())

	assert.Equal(t, 2, report.SamplesStored)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "ctr-bad")
}

func TestRunCycleEmptyStatsLineSkipsSampleSilently(t *testing.T) {
	store := newFakeStore()
	runtime := &fakeRuntime{
		containers: []domain.RuntimeContainer{runtimeContainer("ctr-a", "web", true)},
		statsLines: map[string]string{"ctr-a": ""},
	}
	svc := NewCollectorService(store, store, runtime, nil, &fakeHostProbe{}, 0)

	report := svc.RunCycle(context.Background())

	assert.Equal(t, 0, report.SamplesStored)
	assert.Empty(t, report.Errors, "a container that vanished mid-cycle is not an error")
}

func TestRunCycleHostFailureIsReportedNotFatal(t *testing.T) {
	store := newFakeStore()
	runtime := &fakeRuntime{
		containers: []domain.RuntimeContainer{runtimeContainer("ctr-a", "web", true)},
		statsLines: map[string]string{"ctr-a": statsLineA},
	}
	svc := NewCollectorService(store, store, runtime, nil, &fakeHostProbe{err: errors.New("proc unreadable")}, 0)

	report := svc.RunCycle(context.Background())

	assert.False(t, report.HostSampled)
	assert.Equal(t, 1, report.SamplesStored)
	require.NotEmpty(t, report.Errors)
	assert.Contains(t, report.Errors[len(report.Errors)-1], "host:")
}

func TestBroadcastFailureNeverFailsTheCycle(t *testing.T) {
	store := newFakeStore()
	runtime := &fakeRuntime{
		containers: []domain.RuntimeContainer{runtimeContainer("ctr-a", "web", true)},
		statsLines: map[string]string{"ctr-a": statsLineA},
	}
	broadcaster := &recordingBroadcaster{publishErr: errors.New("broker gone")}
	svc := NewCollectorService(store, store, runtime, broadcaster, &fakeHostProbe{}, 0)

	report := svc.RunCycle(context.Background())

	assert.Equal(t, 1, report.SamplesStored)
	assert.True(t, report.HostSampled)
	assert.Empty(t, report.Errors)
	require.Len(t, store.containerMetrics, 1, "the sample is persisted even when fan-out is down")
}
