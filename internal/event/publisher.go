package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type Publisher interface {
	PublishQuizEvent(ctx context.Context, event *QuizEvent) error
	PublishAttemptEvent(ctx context.Context, event *AttemptEvent) error
	PublishDashboardEvent(ctx context.Context, event *DashboardEvent) error
	Close() error
}

type EventPublisher struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	enabled      bool
	log          zerolog.Logger
}

// NewEventPublisher connects to RabbitMQ and declares the topic exchange. An
// empty URI yields a publisher that only logs.
func NewEventPublisher(rabbitURI string, log zerolog.Logger) (*EventPublisher, error) {
	log = log.With().Str("component", "event_publisher").Logger()
	if rabbitURI == "" {
		log.Warn().Msg("RabbitMQ URI is empty, event publishing is disabled")
		return &EventPublisher{enabled: false, log: log}, nil
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

	return &EventPublisher{
		conn:         conn,
		channel:      channel,
		exchangeName: ExchangeName,
		enabled:      true,
		log:          log,
	}, nil
}

func declareExchange(channel *amqp091.Channel) error {
	err := channel.ExchangeDeclare(
		ExchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	return nil
}

func (p *EventPublisher) publishEvent(ctx context.Context, routingKey string, event any) error {
	if !p.enabled {
		p.log.Debug().Str("routing_key", routingKey).Msg("event publishing is disabled, skipping event")
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		pubCtx,
		p.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.log.Info().Str("routing_key", routingKey).Msg("published event")
	return nil
}

func (p *EventPublisher) PublishQuizEvent(ctx context.Context, event *QuizEvent) error {
	return p.publishEvent(ctx, event.EventType, event)
}

func (p *EventPublisher) PublishAttemptEvent(ctx context.Context, event *AttemptEvent) error {
	return p.publishEvent(ctx, event.EventType, event)
}

func (p *EventPublisher) PublishDashboardEvent(ctx context.Context, event *DashboardEvent) error {
	return p.publishEvent(ctx, event.EventType, event)
}

func (p *EventPublisher) Close() error {
	if !p.enabled {
		return nil
	}

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Error().Err(err).Msg("error closing RabbitMQ channel")
		}
	}

	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("error closing RabbitMQ connection: %w", err)
		}
	}

	return nil
}
