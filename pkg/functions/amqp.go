package functions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

// AMQPQueue publishes and consumes invocations over a durable RabbitMQ
// queue. The API server publishes; the worker consumes.
type AMQPQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewAMQPQueue dials the broker and declares the queue.
func NewAMQPQueue(url, queue string) (*AMQPQueue, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("amqp url required")
	}
	queue = strings.TrimSpace(queue)
	if queue == "" {
		return nil, errors.New("queue name required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %q: %w", queue, err)
	}
	return &AMQPQueue{conn: conn, ch: ch, queue: queue}, nil
}

// Invoke publishes an invocation as a persistent message.
func (q *AMQPQueue) Invoke(ctx context.Context, inv Invocation) error {
	body, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	return q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Consume runs handler over incoming invocations with the given
// concurrency until ctx is done or the delivery channel closes.
// Messages are acked regardless of handler outcome: a failed execution
// is recorded in the execution store, never retried.
func (q *AMQPQueue) Consume(ctx context.Context, concurrency int, handler Handler) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	if err := q.ch.Qos(concurrency, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := q.ch.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %q: %w", q.queue, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case msg, ok := <-deliveries:
					if !ok {
						return errors.New("delivery channel closed")
					}
					var inv Invocation
					if err := json.Unmarshal(msg.Body, &inv); err != nil {
						slog.Warn("discarding malformed invocation", "err", err)
						_ = msg.Ack(false)
						continue
					}
					if err := handler(ctx, inv); err != nil {
						slog.Warn("invocation failed", "execution_id", inv.ExecutionID, "err", err)
					}
					_ = msg.Ack(false)
				}
			}
		})
	}
	return g.Wait()
}

// Close releases the channel and connection.
func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		_ = q.conn.Close()
		return err
	}
	return q.conn.Close()
}
