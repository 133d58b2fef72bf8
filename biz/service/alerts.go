package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"harbormon/collector-service/biz/domain"
)

type AlertRepository interface {
	Insert(ctx context.Context, a *domain.Alert) (*domain.Alert, error)
	Resolve(ctx context.Context, id uuid.UUID) error
	UnresolvedSeverityCounts(ctx context.Context, containerID *uuid.UUID) (critical, high int64, err error)
}

// AlertNotifier is the outbound mail/webhook port for critical alerts.
// Best-effort, same policy as broadcasting.
type AlertNotifier interface {
	SendCriticalAlert(ctx context.Context, a *domain.Alert) error
}

// AlertService derives alerts from scan findings and owns the two alert
// mutations the system allows: creation and resolution.
type AlertService struct {
	alerts      AlertRepository
	broadcaster EventBroadcaster
	notifier    AlertNotifier
}

func NewAlertService(alerts AlertRepository, broadcaster EventBroadcaster, notifier AlertNotifier) *AlertService {
	return &AlertService{alerts: alerts, broadcaster: broadcaster, notifier: notifier}
}

// DeriveFromFindings creates one alert per HIGH or CRITICAL finding. Lower
// severities stay visible inside the scan result only; alerting on them
// would drown operators in noise.
func (s *AlertService) DeriveFromFindings(ctx context.Context, containerID uuid.UUID, scanner string, findings []domain.Finding) ([]domain.Alert, error) {
	var created []domain.Alert
	for _, f := range findings {
		if f.Severity != domain.SeverityHigh && f.Severity != domain.SeverityCritical {
			continue
		}
		ctrID := containerID
		alert, err := s.Create(ctx, &domain.Alert{
			Severity:    f.Severity,
			Message:     findingMessage(f),
			Source:      scanner,
			ContainerID: &ctrID,
		})
		if err != nil {
			zap.L().Error("s.Create alert from finding", zap.Error(err), zap.String("finding", f.ID))
			return created, err
		}
		created = append(created, *alert)
	}
	return created, nil
}

// Create persists an alert, fans it out, and mails critical ones. Only the
// insert is allowed to fail the call.
func (s *AlertService) Create(ctx context.Context, a *domain.Alert) (*domain.Alert, error) {
	alert, err := s.alerts.Insert(ctx, a)
	if err != nil {
		return nil, domain.WrapErrorf(err, domain.ErrInternalServerError, "insert alert")
	}
	if s.broadcaster != nil {
		if err := s.broadcaster.Publish(ctx, ChannelAlerts, alert); err != nil {
			zap.L().Warn("alert broadcast dropped", zap.Error(err))
		}
	}
	if s.notifier != nil && alert.Severity == domain.SeverityCritical {
		if err := s.notifier.SendCriticalAlert(ctx, alert); err != nil {
			zap.L().Warn("critical alert notification failed", zap.Error(err), zap.String("alertID", alert.ID.String()))
		}
	}
	return alert, nil
}

// Resolve marks an alert resolved, the only mutation a persisted alert
// permits.
func (s *AlertService) Resolve(ctx context.Context, id uuid.UUID) error {
	if err := s.alerts.Resolve(ctx, id); err != nil {
		return err
	}
	zap.L().Info("alert resolved", zap.String("alertID", id.String()))
	return nil
}

// SecurityScore computes the linear penalty score over unresolved alerts
// for one container, or system-wide when containerID is nil.
func (s *AlertService) SecurityScore(ctx context.Context, containerID *uuid.UUID) (int64, error) {
	critical, high, err := s.alerts.UnresolvedSeverityCounts(ctx, containerID)
	if err != nil {
		return 0, domain.WrapErrorf(err, domain.ErrInternalServerError, "unresolved severity counts")
	}
	return domain.SecurityScore(critical, high), nil
}

func findingMessage(f domain.Finding) string {
	msg := fmt.Sprintf("%s: %s", f.ID, f.Title)
	if f.Package != "" {
		msg = fmt.Sprintf("%s (package %s)", msg, f.Package)
	}
	return msg
}
