// Package queue_publisher publishes domain events to RabbitMQ. Errors are
// logged and returned so callers can ignore failures without interrupting
// the main request flow; a broker outage must never fail a data entry.
package queue_publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/medstats/postop-followup/internal/queue"
)

// Publisher publishes entry events to a broker at a fixed URL. The URL comes
// from config; construct one only when the queue is configured.
type Publisher struct {
	url string
}

func New(url string) *Publisher {
	return &Publisher{url: url}
}

// PublishEntryEvent publishes an EntryEvent to the followup.entries queue.
// The method never panics; any error is logged and returned so the caller
// can choose to ignore it. Messages are marked as persistent.
func (p *Publisher) PublishEntryEvent(ctx context.Context, event q.EntryEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so events survive broker
	// restarts.
	if _, err := ch.QueueDeclare(
		q.EntryEventQueue, // name
		true,              // durable
		false,             // autoDelete
		false,             // exclusive
		false,             // noWait
		nil,               // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                // default exchange
		q.EntryEventQueue, // routing key = queue name
		false,             // mandatory
		false,             // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}

	return nil
}
