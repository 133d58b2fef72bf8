package dal

import (
	"go.uber.org/zap"

	"harbormon/collector-service/biz/dal/db"
	"harbormon/collector-service/biz/dal/messagebroker"
	"harbormon/collector-service/config"
)

func InitPg(cfg *config.Config) *db.Postgres {
	pg := db.NewPostgres(cfg)
	return pg
}

// InitRmq returns nil when the broker is unreachable; the broadcaster is
// best-effort and the collector runs without it.
func InitRmq(cfg *config.Config) *messagebroker.RabbitMQ {
	rmq, err := messagebroker.NewRabbitMQ(cfg)
	if err != nil {
		zap.L().Warn("rabbitmq unavailable, live fan-out disabled", zap.Error(err))
		return nil
	}
	return rmq
}
