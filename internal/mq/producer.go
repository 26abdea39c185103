package mq

import (
	"context"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
)

func SendImmediateMessage(ctx context.Context, ch *amqp.Channel, queueName string, message any) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = ch.PublishWithContext(
		ctx,
		"",
		queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message to queue %s: %w", queueName, err)
	}

	return nil
}

// Publisher owns one channel and serialises publishes on it.
type Publisher struct {
	mu sync.Mutex
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := NewChannel(conn)
	if err != nil {
		return nil, err
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) PublishReviewCreated(ctx context.Context, message ReviewCreatedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return SendImmediateMessage(ctx, p.ch, ReviewStatsImmediateQueue, message)
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}
