package router

import (
	"context"
	"errors"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"

	"harbormon/collector-service/biz/domain"
	"harbormon/collector-service/biz/router/middleware"
	"harbormon/collector-service/config"
)

type CollectorService interface {
	RunCycle(ctx context.Context) *domain.CycleReport
}

type RetentionService interface {
	Sweep(ctx context.Context, days int, dryRun bool) *domain.SweepReport
}

type ScanService interface {
	StartScan(ctx context.Context, containerID uuid.UUID, scanType string) (*domain.Scan, error)
	CompleteScan(ctx context.Context, scanID uuid.UUID, scanner string, findings []domain.Finding, summary string, durationMillis int64) error
	FailScan(ctx context.Context, scanID uuid.UUID, reason string, durationMillis int64) error
}

type AlertService interface {
	Create(ctx context.Context, a *domain.Alert) (*domain.Alert, error)
	Resolve(ctx context.Context, id uuid.UUID) error
	SecurityScore(ctx context.Context, containerID *uuid.UUID) (int64, error)
}

type InventoryReader interface {
	ListAll(ctx context.Context) ([]domain.Container, error)
}

type HostMetricsReader interface {
	LatestHostMetric(ctx context.Context) (*domain.HostMetric, error)
}

type Handler struct {
	collector CollectorService
	retention RetentionService
	scans     ScanService
	alerts    AlertService
	inventory InventoryReader
	metrics   HostMetricsReader
}

func MyRouter(r *server.Hertz, cfg *config.Config, collector CollectorService, retention RetentionService,
	scans ScanService, alerts AlertService, inventory InventoryReader, metrics HostMetricsReader) {

	handler := &Handler{
		collector: collector,
		retention: retention,
		scans:     scans,
		alerts:    alerts,
		inventory: inventory,
		metrics:   metrics,
	}

	protected := middleware.Protected(cfg.Auth.JWTSecret)

	r.GET("/ping", handler.Ping)

	root := r.Group("/api/v1")
	{
		root.POST("/collector/cycle", append(protected, handler.RunCycle)...)
		root.POST("/retention/sweep", append(protected, handler.RunSweep)...)

		scansH := root.Group("/scans")
		{
			scansH.POST("/", append(protected, handler.StartScan)...)
			scansH.POST("/:id/complete", append(protected, handler.CompleteScan)...)
			scansH.POST("/:id/fail", append(protected, handler.FailScan)...)
		}

		alertsH := root.Group("/alerts")
		{
			alertsH.POST("/", append(protected, handler.CreateAlert)...)
			alertsH.POST("/:id/resolve", append(protected, handler.ResolveAlert)...)
			alertsH.GET("/security-score", handler.SecurityScore)
		}

		root.GET("/containers", handler.ListContainers)
		root.GET("/metrics/host/latest", handler.LatestHostMetric)
	}
}

// ResponseError represent the response error struct
type ResponseError struct {
	Message string `json:"message"`
}

func (m *Handler) Ping(ctx context.Context, c *app.RequestContext) {
	c.JSON(http.StatusOK, map[string]string{"message": "pong"})
}

func (m *Handler) RunCycle(ctx context.Context, c *app.RequestContext) {
	report := m.collector.RunCycle(ctx)
	c.JSON(http.StatusOK, report)
}

type sweepReq struct {
	Days   int  `json:"days" vd:"$>=0 && $<3650; msg:'days must be between 0 and 3650'"`
	DryRun bool `json:"dry_run"`
}

type sweepResp struct {
	MetricsDeleted int64    `json:"metricsDeleted"`
	AlertsDeleted  int64    `json:"alertsDeleted"`
	ScansDeleted   int64    `json:"scansDeleted"`
	Errors         []string `json:"errors"`
}

func (m *Handler) RunSweep(ctx context.Context, c *app.RequestContext) {
	var req sweepReq
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(consts.StatusBadRequest, ResponseError{Message: err.Error()})
		return
	}
	report := m.retention.Sweep(ctx, req.Days, req.DryRun)
	errs := report.Errors
	if errs == nil {
		errs = []string{}
	}
	c.JSON(http.StatusOK, sweepResp{
		MetricsDeleted: report.MetricsDeleted,
		AlertsDeleted:  report.AlertsDeleted,
		ScansDeleted:   report.ScansDeleted,
		Errors:         errs,
	})
}

type startScanReq struct {
	ContainerID string `json:"container_id,required"`
	ScanType    string `json:"scan_type,required" vd:"len($)<50; msg:'scan_type too long'"`
}

func (m *Handler) StartScan(ctx context.Context, c *app.RequestContext) {
	var req startScanReq
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(consts.StatusBadRequest, ResponseError{Message: err.Error()})
		return
	}
	ctrID, err := uuid.Parse(req.ContainerID)
	if err != nil {
		c.JSON(consts.StatusBadRequest, ResponseError{Message: "container_id is not a valid uuid"})
		return
	}
	scan, err := m.scans.StartScan(ctx, ctrID, req.ScanType)
	if err != nil {
		c.JSON(getStatusCode(err), ResponseError{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, scan)
}

type completeScanReq struct {
	Scanner        string           `json:"scanner,required"`
	Findings       []domain.Finding `json:"findings"`
	Summary        string           `json:"summary"`
	DurationMillis int64            `json:"duration_millis"`
}

func (m *Handler) CompleteScan(ctx context.Context, c *app.RequestContext) {
	scanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(consts.StatusBadRequest, ResponseError{Message: "scan id is not a valid uuid"})
		return
	}
	var req completeScanReq
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(consts.StatusBadRequest, ResponseError{Message: err.Error()})
		return
	}
	if err := m.scans.CompleteScan(ctx, scanID, req.Scanner, req.Findings, req.Summary, req.DurationMillis); err != nil {
		c.JSON(getStatusCode(err), ResponseError{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, map[string]string{"message": "scan completed"})
}

type failScanReq struct {
	Reason         string `json:"reason,required"`
	DurationMillis int64  `json:"duration_millis"`
}

func (m *Handler) FailScan(ctx context.Context, c *app.RequestContext) {
	scanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(consts.StatusBadRequest, ResponseError{Message: "scan id is not a valid uuid"})
		return
	}
	var req failScanReq
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(consts.StatusBadRequest, ResponseError{Message: err.Error()})
		return
	}
	if err := m.scans.FailScan(ctx, scanID, req.Reason, req.DurationMillis); err != nil {
		c.JSON(getStatusCode(err), ResponseError{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, map[string]string{"message": "scan marked failed"})
}

type createAlertReq struct {
	Severity    string `json:"severity,required" vd:"$=='LOW' || $=='MEDIUM' || $=='HIGH' || $=='CRITICAL'; msg:'severity must be LOW, MEDIUM, HIGH or CRITICAL'"`
	Message     string `json:"message,required" vd:"len($)<1000; msg:'message too long'"`
	Source      string `json:"source,required" vd:"len($)<100; msg:'source too long'"`
	ContainerID string `json:"container_id"`
}

func (m *Handler) CreateAlert(ctx context.Context, c *app.RequestContext) {
	var req createAlertReq
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(consts.StatusBadRequest, ResponseError{Message: err.Error()})
		return
	}
	alert := &domain.Alert{
		Severity: domain.Severity(req.Severity),
		Message:  req.Message,
		Source:   req.Source,
	}
	if req.ContainerID != "" {
		ctrID, err := uuid.Parse(req.ContainerID)
		if err != nil {
			c.JSON(consts.StatusBadRequest, ResponseError{Message: "container_id is not a valid uuid"})
			return
		}
		alert.ContainerID = &ctrID
	}
	created, err := m.alerts.Create(ctx, alert)
	if err != nil {
		c.JSON(getStatusCode(err), ResponseError{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, created)
}

func (m *Handler) ResolveAlert(ctx context.Context, c *app.RequestContext) {
	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(consts.StatusBadRequest, ResponseError{Message: "alert id is not a valid uuid"})
		return
	}
	if err := m.alerts.Resolve(ctx, alertID); err != nil {
		c.JSON(getStatusCode(err), ResponseError{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, map[string]string{"message": "alert resolved"})
}

func (m *Handler) SecurityScore(ctx context.Context, c *app.RequestContext) {
	var containerID *uuid.UUID
	if raw := c.Query("container_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(consts.StatusBadRequest, ResponseError{Message: "container_id is not a valid uuid"})
			return
		}
		containerID = &id
	}
	score, err := m.alerts.SecurityScore(ctx, containerID)
	if err != nil {
		c.JSON(getStatusCode(err), ResponseError{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, map[string]int64{"score": score})
}

func (m *Handler) ListContainers(ctx context.Context, c *app.RequestContext) {
	ctrs, err := m.inventory.ListAll(ctx)
	if err != nil {
		c.JSON(getStatusCode(err), ResponseError{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, map[string]interface{}{"containers": ctrs})
}

func (m *Handler) LatestHostMetric(ctx context.Context, c *app.RequestContext) {
	metric, err := m.metrics.LatestHostMetric(ctx)
	if err != nil {
		c.JSON(getStatusCode(err), ResponseError{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, metric)
}

func getStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ierr *domain.Error
	if !errors.As(err, &ierr) {
		return http.StatusInternalServerError
	} else {
		switch ierr.Code() {
		case domain.ErrInternalServerError:
			return http.StatusInternalServerError
		case domain.ErrNotFound:
			return http.StatusNotFound
		case domain.ErrConflict:
			return http.StatusConflict
		case domain.ErrBadParamInput:
			return http.StatusBadRequest
		default:
			return http.StatusBadRequest
		}
	}
}
