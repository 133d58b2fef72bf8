package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"harbormon/collector-service/biz/domain"
	"harbormon/collector-service/config"
)

type MailingServiceWebAPI struct {
	MailingURL string
	client     *http.Client
}

type alertEmailReq struct {
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	Source      string `json:"source"`
	ContainerID string `json:"container_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func NewMailingServiceWebAPI(cfg *config.Config) *MailingServiceWebAPI {
	return &MailingServiceWebAPI{
		MailingURL: cfg.Mailing.MailingURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// SendCriticalAlert forwards a critical alert to the mailing service.
// Callers treat failures as lost convenience, not lost data.
func (m *MailingServiceWebAPI) SendCriticalAlert(ctx context.Context, a *domain.Alert) error {
	body := alertEmailReq{
		Severity:  string(a.Severity),
		Message:   a.Message,
		Source:    a.Source,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
	if a.ContainerID != nil {
		body.ContainerID = a.ContainerID.String()
	}

	payload, err := json.Marshal(body)
	if err != nil {
		zap.L().Error("Marshal JSON (SendCriticalAlert)", zap.Error(err))
		return domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.MailingURL+"/api/v1/email/alert", bytes.NewBuffer(payload))
	if err != nil {
		zap.L().Error("NewRequestWithContext (SendCriticalAlert)", zap.Error(err))
		return domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		zap.L().Warn("client.Do (SendCriticalAlert)", zap.Error(err))
		return domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return domain.NewErrorf(domain.ErrInternalServerError, "mailing service returned status %d", resp.StatusCode)
	}
	return nil
}
