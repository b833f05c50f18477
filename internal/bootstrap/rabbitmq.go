package bootstrap

import (
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/brackwater/payrail/internal/config"
	"github.com/brackwater/payrail/internal/mlog"
)

const outboxExchange = "payrail.events"

// newAMQPChannel dials cfg.RabbitMQURL and declares the outbox fan-out
// exchange, returning nil (not an error) when no URL is configured —
// RabbitMQ fan-out is additive to webhook delivery, never required.
func newAMQPChannel(cfg config.Config, logger mlog.Logger) (*amqp.Channel, error) {
	if cfg.RabbitMQURL == "" {
		return nil, nil
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Warnf("rabbitmq unavailable, outbox fan-out disabled: %v", err)
		return nil, nil
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	if err := ch.ExchangeDeclare(outboxExchange, "topic", true, false, false, false, nil); err != nil {
		return nil, err
	}

	return ch, nil
}
