package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jjudge-oj/contestjudge/config"
)

const (
	// eventsExchange is a topic exchange; channel names are routing keys.
	eventsExchange = "contestjudge.events"
	// contentTypeAttr lets publishers override the AMQP content type.
	contentTypeAttr = "content_type"
)

// RabbitMQClient publishes to a topic exchange. Each channel gets a queue of
// the same name bound to it, so events wait for downstream consumers.
type RabbitMQClient struct {
	conn            *amqp.Connection
	queueDurable    bool
	queueAutoDelete bool

	// amqp channels are not safe for concurrent publishes.
	mu       sync.Mutex
	channel  *amqp.Channel
	declared map[string]bool
}

// NewRabbitMQClient dials the broker and declares the events exchange.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(eventsExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &RabbitMQClient{
		conn:            conn,
		channel:         ch,
		queueDurable:    cfg.QueueDurable,
		queueAutoDelete: cfg.QueueAutoDelete,
		declared:        make(map[string]bool),
	}, nil
}

// Publish routes data to the events exchange under the channel name.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	contentType := "application/json"
	headers := amqp.Table{}
	for key, value := range attrs {
		if key == contentTypeAttr {
			contentType = value
			continue
		}
		headers[key] = value
	}

	messageID := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.declared[channel] {
		if err := r.bindQueue(channel); err != nil {
			return "", fmt.Errorf("bind queue %s: %w", channel, err)
		}
		r.declared[channel] = true
	}
	err := r.channel.PublishWithContext(ctx, eventsExchange, channel, false, false, amqp.Publishing{
		ContentType:  contentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Headers:      headers,
		Body:         data,
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// Close closes the underlying channel and connection.
func (r *RabbitMQClient) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func (r *RabbitMQClient) bindQueue(channel string) error {
	queue, err := r.channel.QueueDeclare(channel, r.queueDurable, r.queueAutoDelete, false, false, nil)
	if err != nil {
		return err
	}
	return r.channel.QueueBind(queue.Name, channel, eventsExchange, false, nil)
}
