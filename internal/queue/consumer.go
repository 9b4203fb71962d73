package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/felixgeelhaar/roster/internal/roster"
	amqp "github.com/rabbitmq/amqp091-go"
)

// EventHandler processes one roster event. Returning an error rejects the
// message without requeueing it.
type EventHandler func(ctx context.Context, event roster.Event) error

// Consumer reads roster events from the events queue.
type Consumer struct {
	conn       *Connection
	handler    EventHandler
	prefetch   int
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewConsumer creates a consumer delivering events to handler in order.
func NewConsumer(conn *Connection, handler EventHandler) *Consumer {
	return &Consumer{
		conn:     conn,
		handler:  handler,
		prefetch: 1,
	}
}

// Start begins consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		EventsQueueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	slog.Info("starting roster event consumer", "queue", EventsQueueName)

	c.wg.Add(1)
	go c.consume(ctx, msgs)
	return nil
}

func (c *Consumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				slog.Info("event channel closed")
				return
			}
			c.processMessage(ctx, msg)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	var event roster.Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		slog.Error("failed to unmarshal event", "error", err)
		_ = msg.Reject(false)
		return
	}

	if err := c.handler(ctx, event); err != nil {
		slog.Error("event handler failed",
			"type", event.Type,
			"student_id", event.Student.ID,
			"error", err,
		)
		_ = msg.Reject(false)
		return
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("failed to ack event", "type", event.Type, "error", err)
	}
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	slog.Info("consumer stopped")
}
