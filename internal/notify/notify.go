// Package notify announces clean mark uploads to downstream consumers such
// as the parent messaging dispatcher.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/JonMunkholm/markupload/internal/core"
)

// RoutingKeyPrefix is followed by the exam id.
const RoutingKeyPrefix = "results.published."

// RoutingKey returns the topic routing key for an event.
func RoutingKey(event core.ResultsPublished) string {
	return RoutingKeyPrefix + event.ExamID
}

// channel is the part of *amqp.Channel used for publishing.
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes JSON events to a topic exchange. A channel is
// opened per event, following the broker's recommendation for low-rate
// publishers.
type AMQPPublisher struct {
	exchange string
	conn     *amqp.Connection
	open     func() (channel, error)

	mu     sync.Mutex
	closed bool
}

// NewAMQPPublisher dials url and declares exchange as a durable topic.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &AMQPPublisher{
		exchange: exchange,
		conn:     conn,
		open: func() (channel, error) {
			return conn.Channel()
		},
	}, nil
}

var errPublisherClosed = errors.New("publisher closed")

// PublishResults implements core.Publisher.
func (p *AMQPPublisher) PublishResults(ctx context.Context, event core.ResultsPublished) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := newMessage(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errPublisherClosed
	}

	ch, err := p.open()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Publish(p.exchange, RoutingKey(event), false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", RoutingKey(event), err)
	}
	return nil
}

// Close closes the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

func newMessage(event core.ResultsPublished) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.UploadID,
		Timestamp:    event.PublishedAt,
		Type:         "results.published",
		Body:         body,
	}, nil
}

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) PublishResults(ctx context.Context, event core.ResultsPublished) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "results published",
		"routing_key", RoutingKey(event),
		"upload_id", event.UploadID,
		"exam_id", event.ExamID,
		"successful", event.Successful,
	)
	return nil
}
