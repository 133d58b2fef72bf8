package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harbormon/collector-service/biz/domain"
)

func TestDeriveFromFindingsKeepsOnlyHighAndCritical(t *testing.T) {
	repo := newFakeAlertRepo()
	svc := NewAlertService(repo, nil, nil)
	ctrID := uuid.New()

	created, err := svc.DeriveFromFindings(context.Background(), ctrID, "trivy", []domain.Finding{
		{ID: "CVE-2024-0001", Severity: domain.SeverityCritical, Package: "openssl", Title: "heap overflow"},
		{ID: "CVE-2024-0002", Severity: domain.SeverityLow, Package: "bash", Title: "info leak"},
		{ID: "CVE-2024-0003", Severity: domain.SeverityMedium, Package: "curl", Title: "redirect handling"},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)

	a := created[0]
	assert.Equal(t, domain.SeverityCritical, a.Severity)
	assert.Equal(t, "trivy", a.Source)
	require.NotNil(t, a.ContainerID)
	assert.Equal(t, ctrID, *a.ContainerID)
	assert.Equal(t, "CVE-2024-0001: heap overflow (package openssl)", a.Message)
}

func TestCreateNotifiesOnCriticalOnly(t *testing.T) {
	repo := newFakeAlertRepo()
	notifier := &fakeNotifier{}
	broadcaster := &recordingBroadcaster{}
	svc := NewAlertService(repo, broadcaster, notifier)

	_, err := svc.Create(context.Background(), &domain.Alert{Severity: domain.SeverityHigh, Message: "high", Source: "test"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), &domain.Alert{Severity: domain.SeverityCritical, Message: "critical", Source: "test"})
	require.NoError(t, err)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, domain.SeverityCritical, notifier.sent[0].Severity)

	channels := broadcaster.channels()
	require.Len(t, channels, 2)
	assert.Equal(t, ChannelAlerts, channels[0])
}

func TestResolveUnknownAlertReturnsNotFound(t *testing.T) {
	svc := NewAlertService(newFakeAlertRepo(), nil, nil)

	err := svc.Resolve(context.Background(), uuid.New())
	require.Error(t, err)

	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrNotFound, derr.Code())
}

func TestSecurityScorePenalties(t *testing.T) {
	repo := newFakeAlertRepo()
	svc := NewAlertService(repo, nil, nil)
	ctrID := uuid.New()

	insert := func(sev domain.Severity, resolved bool, ctr *uuid.UUID) {
		a, err := repo.Insert(context.Background(), &domain.Alert{Severity: sev, Message: "x", Source: "test", ContainerID: ctr})
		require.NoError(t, err)
		if resolved {
			require.NoError(t, repo.Resolve(context.Background(), a.ID))
		}
	}

	insert(domain.SeverityCritical, false, &ctrID) // -10
	insert(domain.SeverityHigh, false, &ctrID)     // -5
	insert(domain.SeverityHigh, true, &ctrID)      // resolved, no penalty
	insert(domain.SeverityCritical, false, nil)    // host-wide only

	score, err := svc.SecurityScore(context.Background(), &ctrID)
	require.NoError(t, err)
	assert.Equal(t, int64(85), score)

	score, err = svc.SecurityScore(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(75), score)
}

func TestSecurityScoreClampsAtZero(t *testing.T) {
	assert.Equal(t, int64(0), domain.SecurityScore(15, 0))
	assert.Equal(t, int64(0), domain.SecurityScore(10, 0))
	assert.Equal(t, int64(100), domain.SecurityScore(0, 0))
	assert.Equal(t, int64(0), domain.SecurityScore(9, 2))
}
