package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzap "github.com/hertz-contrib/logger/zap"
	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"harbormon/collector-service/biz/dal"
	"harbormon/collector-service/biz/dal/db"
	"harbormon/collector-service/biz/router"
	"harbormon/collector-service/config"
	"harbormon/collector-service/di"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("config error: %s", err)
	}

	logger := initLogger(cfg)
	defer logger.Sync()

	pg := dal.InitPg(cfg)
	if err := db.Migrate(pg); err != nil {
		zap.L().Fatal("db.Migrate", zap.Error(err))
	}
	rmq := dal.InitRmq(cfg)

	alertSvc := di.InitAlertService(pg, rmq, cfg)
	scanSvc := di.InitScanService(pg, cfg, alertSvc)
	collectorSvc := di.InitCollectorService(pg, rmq, cfg, cfg.Collector.ContainerDelay)
	retentionSvc := di.InitRetentionService(pg, cfg.Retention.Days)

	// Background loops stop when the process receives a termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go collectorSvc.Run(ctx, cfg.Collector.Interval)
	go retentionSvc.Run(ctx, cfg.Retention.SweepInterval)

	h := server.Default(
		server.WithHostPorts(cfg.HTTP.Address),
		server.WithExitWaitTime(4*time.Second),
	)
	h.OnShutdown = append(h.OnShutdown, func(ctx context.Context) {
		stop()
		if err := rmq.Close(); err != nil {
			zap.L().Error("rmq.Close", zap.Error(err))
		}
		if err := db.ClosePostgres(pg.Pool); err != nil {
			zap.L().Error("db.ClosePostgres", zap.Error(err))
		}
	})

	router.MyRouter(h, cfg, collectorSvc, retentionSvc, scanSvc, alertSvc,
		db.NewContainerRepo(pg), db.NewMetricsRepo(pg))
	h.Spin()
}

func initLogger(cfg *config.Config) *zap.Logger {
	lvl, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
	})

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), lvl),
		zapcore.NewCore(encoder, fileWriter, lvl),
	)
	logger := zap.New(core, zap.AddCaller())
	zap.ReplaceGlobals(logger)

	hlog.SetLogger(hertzzap.NewLogger(
		hertzzap.WithCoreEnc(encoder),
		hertzzap.WithCoreWs(fileWriter),
		hertzzap.WithCoreLevel(zap.NewAtomicLevelAt(lvl)),
	))
	return logger
}
