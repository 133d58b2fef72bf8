// go:build wireinject
//go:build wireinject
// +build wireinject

package di

import (
	"harbormon/collector-service/biz/dal/db"
	"harbormon/collector-service/biz/dal/messagebroker"
	"harbormon/collector-service/biz/router"
	"harbormon/collector-service/biz/service"
	"harbormon/collector-service/biz/webapi"
	"harbormon/collector-service/config"
	"time"

	"github.com/google/wire"
)

var CollectorSet wire.ProviderSet = wire.NewSet(
	db.NewContainerRepo,
	db.NewMetricsRepo,
	webapi.CreateNewDockerEngineAPI,
	service.NewHostSampler,
	service.NewCollectorService,

	wire.Bind(new(router.CollectorService), new(*service.CollectorService)),
	wire.Bind(new(service.ContainerRepository), new(*db.ContainerRepository)),
	wire.Bind(new(service.MetricsRepository), new(*db.MetricsRepository)),
	wire.Bind(new(service.ContainerRuntimeAPI), new(*webapi.DockerEngineAPI)),
	wire.Bind(new(service.EventBroadcaster), new(*messagebroker.RabbitMQ)),
	wire.Bind(new(service.HostProbe), new(*service.HostSampler)),
)

var AlertSet wire.ProviderSet = wire.NewSet(
	db.NewAlertRepo,
	webapi.NewMailingServiceWebAPI,
	service.NewAlertService,

	wire.Bind(new(router.AlertService), new(*service.AlertService)),
	wire.Bind(new(service.AlertRepository), new(*db.AlertRepository)),
	wire.Bind(new(service.EventBroadcaster), new(*messagebroker.RabbitMQ)),
	wire.Bind(new(service.AlertNotifier), new(*webapi.MailingServiceWebAPI)),
)

var ScanSet wire.ProviderSet = wire.NewSet(
	db.NewScanRepo,
	webapi.NewMinioAPI,
	service.NewScanService,

	wire.Bind(new(router.ScanService), new(*service.ScanService)),
	wire.Bind(new(service.ScanRepository), new(*db.ScanRepository)),
	wire.Bind(new(service.ScanArtifactStore), new(*webapi.MinioAPI)),
)

var RetentionSet wire.ProviderSet = wire.NewSet(
	db.NewMetricsRepo,
	db.NewAlertRepo,
	db.NewScanRepo,
	service.NewRetentionService,

	wire.Bind(new(router.RetentionService), new(*service.RetentionService)),
	wire.Bind(new(service.MetricSweeper), new(*db.MetricsRepository)),
	wire.Bind(new(service.AlertSweeper), new(*db.AlertRepository)),
	wire.Bind(new(service.ScanSweeper), new(*db.ScanRepository)),
)

func InitCollectorService(pg *db.Postgres, rmq *messagebroker.RabbitMQ, cfg *config.Config, containerDelay time.Duration) *service.CollectorService {
	wire.Build(
		CollectorSet,
	)
	return nil
}

func InitAlertService(pg *db.Postgres, rmq *messagebroker.RabbitMQ, cfg *config.Config) *service.AlertService {
	wire.Build(
		AlertSet,
	)
	return nil
}

func InitScanService(pg *db.Postgres, cfg *config.Config, alerts *service.AlertService) *service.ScanService {
	wire.Build(
		ScanSet,
	)
	return nil
}

func InitRetentionService(pg *db.Postgres, defaultDays int) *service.RetentionService {
	wire.Build(
		RetentionSet,
	)
	return nil
}
