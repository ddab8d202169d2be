// Package broker moves campaign send jobs through RabbitMQ so the API can
// acknowledge a launch immediately and a worker fleet does the sending.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const (
	// ExchangeName is the topic exchange all campaign traffic flows through
	ExchangeName = "commhub.campaigns"

	// RouteDispatch carries launch jobs from the API to workers
	RouteDispatch = "campaign.dispatch"

	// RouteProgress carries delivery progress from workers back to the API
	RouteProgress = "campaign.progress"
)

// Envelope wraps every payload on the wire with routing metadata
type Envelope struct {
	ID             string          `json:"id"`
	Route          string          `json:"route"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Data           json.RawMessage `json:"data"`
}

// DispatchJob asks a worker to send one campaign to its audience
type DispatchJob struct {
	CampaignID   uuid.UUID `json:"campaign_id"`
	TemplateName string    `json:"template_name"`
	TagFilter    string    `json:"tag_filter"`
	AudienceSize int       `json:"audience_size"`
}

// ProgressReport is a worker's delivery progress for a running campaign
type ProgressReport struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	Delivered  int       `json:"delivered"`
	Read       int       `json:"read"`
	Done       bool      `json:"done"`
}

// Connection owns the AMQP channel and the exchange declaration
type Connection struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Connect dials RabbitMQ and declares the campaign exchange
func Connect(url string) (*Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Connection{conn: conn, channel: channel}, nil
}

// Close releases the channel and connection
func (c *Connection) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Publish sends a payload wrapped in an envelope on the given route
func (c *Connection) Publish(ctx context.Context, route string, orgID uuid.UUID, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	envelope := Envelope{
		ID:             uuid.New().String(),
		Route:          route,
		OrganizationID: orgID,
		OccurredAt:     time.Now().UTC(),
		Data:           data,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	err = c.channel.PublishWithContext(ctx,
		ExchangeName,
		route,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    envelope.ID,
			Timestamp:    envelope.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish on %s: %w", route, err)
	}

	log.Debug().Str("route", route).Str("envelope_id", envelope.ID).Msg("published")
	return nil
}

// Consume binds a queue to the route and yields envelopes until ctx ends.
// Messages are acked after the handler returns nil and requeued once on
// error.
func (c *Connection) Consume(ctx context.Context, queueName, route string, handler func(Envelope) error) error {
	queue, err := c.channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	if err := c.channel.QueueBind(queue.Name, route, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", queueName, err)
	}

	deliveries, err := c.channel.Consume(
		queue.Name,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consumer on %s: %w", queueName, err)
	}

	log.Info().Str("queue", queueName).Str("route", route).Msg("consuming")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed for %s", queueName)
			}

			var envelope Envelope
			if err := json.Unmarshal(delivery.Body, &envelope); err != nil {
				log.Error().Err(err).Msg("dropping malformed envelope")
				delivery.Nack(false, false)
				continue
			}

			if err := handler(envelope); err != nil {
				log.Error().Err(err).Str("envelope_id", envelope.ID).Msg("handler failed")
				delivery.Nack(false, !delivery.Redelivered)
				continue
			}

			delivery.Ack(false)
		}
	}
}
