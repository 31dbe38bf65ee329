package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/bankingapp/user-service/internal/core/ports"
)

// DefaultQueue is the durable queue user.registered events are routed to.
const DefaultQueue = "user.registered"

// AMQPPublisher is a Sink that publishes persistent JSON messages to a
// durable RabbitMQ queue through the default exchange. It dials per message.
type AMQPPublisher struct {
	url   string
	queue string
	now   func() time.Time
	log   zerolog.Logger
}

func NewAMQPPublisher(url, queue string, log zerolog.Logger) *AMQPPublisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &AMQPPublisher{
		url:   url,
		queue: queue,
		now:   time.Now,
		log:   log.With().Str("component", "amqp_publisher").Logger(),
	}
}

func (p *AMQPPublisher) Publish(ctx context.Context, event ports.UserRegisteredEvent) error {
	msg, err := p.message(event)
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		p.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("amqp queue declare: %w", err)
	}

	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}

	p.log.Debug().Int64("user_id", event.UserID).Str("queue", p.queue).Msg("event published")
	return nil
}

func (p *AMQPPublisher) message(event ports.UserRegisteredEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         DefaultQueue,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}, nil
}

// LogSink records events in the log instead of publishing them. It is used
// when no broker is configured.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "event_log_sink").Logger()}
}

func (s *LogSink) Publish(_ context.Context, event ports.UserRegisteredEvent) error {
	s.log.Info().
		Int64("user_id", event.UserID).
		Str("email", event.Email).
		Strs("roles", event.Roles).
		Time("registered_at", event.RegisteredAt).
		Msg("user registered event")
	return nil
}
