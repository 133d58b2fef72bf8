package messagebroker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"harbormon/collector-service/biz/domain"
	"harbormon/collector-service/config"
)

const telemetryExchange = "telemetry-events"

// RabbitMQ is the live fan-out channel behind the broadcaster port.
// Subscribers bind queues to the topic exchange with the channel key as the
// routing key; no delivery guarantee is assumed or offered.
type RabbitMQ struct {
	Connection *amqp.Connection
	Channel    *amqp.Channel

	mu sync.Mutex
}

// NewRabbitMQ connects and declares the telemetry exchange. Unlike the
// persistence pool this returns an error instead of dying: a missing broker
// only degrades live updates, never collection.
func NewRabbitMQ(cfg *config.Config) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.RabbitMQ.RMQAddress)
	if err != nil {
		return nil, domain.WrapErrorf(err, domain.ErrInternalServerError, "cannot connect to rabbitmq")
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, domain.WrapErrorf(err, domain.ErrInternalServerError, "cannot open rabbitmq channel")
	}

	err = channel.ExchangeDeclare(
		telemetryExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, domain.WrapErrorf(err, domain.ErrInternalServerError, "channel.ExchangeDeclare")
	}

	return &RabbitMQ{
		Connection: conn,
		Channel:    channel,
	}, nil
}

// Publish routes a JSON payload to the channel key. amqp channels are not
// safe for concurrent writes, hence the lock; host and container sampling
// broadcast from different goroutines.
func (r *RabbitMQ) Publish(ctx context.Context, channel string, payload interface{}) error {
	if r == nil || r.Channel == nil {
		return domain.NewErrorf(domain.ErrInternalServerError, "message broker not connected")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.WrapErrorf(err, domain.ErrBadParamInput, "marshal broadcast payload")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Channel.Publish(
		telemetryExchange,
		channel,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
}

func (r *RabbitMQ) Close() error {
	if r == nil || r.Connection == nil {
		return nil
	}
	zap.L().Info("closing rabbitmq gracefully")
	return r.Connection.Close()
}
