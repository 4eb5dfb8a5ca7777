package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartConsumer connects to RabbitMQ, declares the booking.requests
// queue (durable) and consumes jobs until ctx is cancelled.  Up to
// concurrency jobs are processed at once; jobs for overlapping seat
// sets still serialize inside the repository transaction.  The
// function runs a reconnect loop with capped exponential backoff and
// returns only when ctx ends.  A message is acked after its job
// reaches a terminal outcome either way; only malformed payloads are
// rejected without processing.
func StartConsumer(ctx context.Context, url string, w *Worker, concurrency int) error {
	if concurrency < 1 {
		concurrency = 1
	}
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("booking-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(ctx, conn, w, concurrency); err != nil {
			_ = conn.Close()
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			log.Printf("booking-consumer: consume loop ended: %v; reconnecting", err)
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, w *Worker, concurrency int) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Printf("booking-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(requestQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(requestQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	sem := make(chan struct{}, concurrency)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			var job Job
			if err := json.Unmarshal(d.Body, &job); err != nil {
				log.Printf("booking-consumer: unmarshal job failed: %v", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			sem <- struct{}{}
			go func(d amqp.Delivery, job Job) {
				defer func() { <-sem }()
				// Handle owns the retry budget; the terminal
				// outcome has been reported to observers by the
				// time it returns, so the message is done.
				_ = w.Handle(ctx, job)
				_ = d.Ack(false)
			}(d, job)
		}
	}
}
