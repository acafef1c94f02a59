package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/apperr"
)

const QueueName = "marketplace-quiz-service"

type Consumer interface {
	Start() error
	Close() error
}

type PaymentHandler interface {
	HandlePaymentNotification(ctx context.Context, purchaseID bson.ObjectID, status string) error
}

type DashboardRefresher interface {
	Refresh(ctx context.Context, educatorID string)
}

var consumedRoutingKeys = []string{
	RoutingKeyPaymentCompleted,
	RoutingKeyCourseCreated,
	RoutingKeyCourseUpdated,
	RoutingKeyCourseDeleted,
	RoutingKeyPathwayCreated,
	RoutingKeyPathwayUpdated,
	RoutingKeyPathwayDeleted,
}

type EventConsumer struct {
	conn           *amqp091.Connection
	channel        *amqp091.Channel
	queueName      string
	paymentHandler PaymentHandler
	dashboards     DashboardRefresher
	enabled        bool
	log            zerolog.Logger
}

func NewEventConsumer(rabbitURI string, paymentHandler PaymentHandler, dashboards DashboardRefresher, log zerolog.Logger) (*EventConsumer, error) {
	log = log.With().Str("component", "event_consumer").Logger()
	if rabbitURI == "" {
		log.Warn().Msg("RabbitMQ URI is empty, event consumption is disabled")
		return &EventConsumer{enabled: false, log: log}, nil
	}

	conn, err := amqp091.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	if err := declareExchange(channel); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	queue, err := channel.QueueDeclare(
		QueueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, key := range consumedRoutingKeys {
		if err := channel.QueueBind(queue.Name, key, ExchangeName, false, nil); err != nil {
			channel.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to bind queue to %s: %w", key, err)
		}
	}

	return &EventConsumer{
		conn:           conn,
		channel:        channel,
		queueName:      queue.Name,
		paymentHandler: paymentHandler,
		dashboards:     dashboards,
		enabled:        true,
		log:            log,
	}, nil
}

// newHandlerOnly builds a consumer without a broker connection so messages
// can be dispatched directly.
func newHandlerOnly(paymentHandler PaymentHandler, dashboards DashboardRefresher, log zerolog.Logger) *EventConsumer {
	return &EventConsumer{paymentHandler: paymentHandler, dashboards: dashboards, log: log}
}

func (c *EventConsumer) Start() error {
	if !c.enabled {
		c.log.Info().Msg("event consumption is disabled")
		return nil
	}

	if err := c.channel.Qos(10, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			if err := c.processMessage(msg.RoutingKey, msg.Body); err != nil {
				c.log.Error().Err(err).Str("routing_key", msg.RoutingKey).Msg("failed to process message")
				msg.Nack(false, true)
			} else {
				msg.Ack(false)
			}
		}
	}()

	c.log.Info().Str("queue", c.queueName).Msg("event consumer started, waiting for messages")
	return nil
}

func (c *EventConsumer) processMessage(routingKey string, body []byte) error {
	c.log.Debug().Str("routing_key", routingKey).Msg("received message")

	switch routingKey {
	case RoutingKeyPaymentCompleted:
		return c.handlePaymentEvent(body)
	case RoutingKeyCourseCreated, RoutingKeyCourseUpdated, RoutingKeyCourseDeleted,
		RoutingKeyPathwayCreated, RoutingKeyPathwayUpdated, RoutingKeyPathwayDeleted:
		return c.handleContentEvent(routingKey, body)
	default:
		c.log.Warn().Str("routing_key", routingKey).Msg("unknown routing key")
		return nil
	}
}

func (c *EventConsumer) handlePaymentEvent(body []byte) error {
	var payment PaymentEventData
	if err := json.Unmarshal(body, &payment); err != nil {
		c.log.Error().Err(err).Msg("dropping malformed payment event")
		return nil
	}

	if payment.PurchaseID == "" {
		c.log.Warn().Msg("no purchase id in payment event, skipping")
		return nil
	}
	purchaseID, err := bson.ObjectIDFromHex(payment.PurchaseID)
	if err != nil {
		c.log.Warn().Str("purchase_id", payment.PurchaseID).Msg("invalid purchase id in payment event, skipping")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.paymentHandler.HandlePaymentNotification(ctx, purchaseID, payment.Status); err != nil {
		// Business errors will not go away on redelivery.
		if apperr.KindOf(err) != apperr.KindInternal {
			c.log.Warn().Err(err).Str("purchase_id", payment.PurchaseID).Msg("dropping payment event")
			return nil
		}
		return fmt.Errorf("failed to handle payment notification: %w", err)
	}

	c.log.Info().Str("purchase_id", payment.PurchaseID).Str("status", payment.Status).Msg("processed payment notification")
	return nil
}

func (c *EventConsumer) handleContentEvent(routingKey string, body []byte) error {
	var content ContentEventData
	if err := json.Unmarshal(body, &content); err != nil {
		c.log.Error().Err(err).Str("routing_key", routingKey).Msg("dropping malformed content event")
		return nil
	}
	if content.EducatorID == "" {
		c.log.Warn().Str("routing_key", routingKey).Msg("no educator id in content event, skipping")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c.dashboards.Refresh(ctx, content.EducatorID)
	return nil
}

func (c *EventConsumer) Close() error {
	if !c.enabled {
		return nil
	}

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.log.Error().Err(err).Msg("error closing RabbitMQ channel")
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("error closing RabbitMQ connection: %w", err)
		}
	}

	return nil
}
