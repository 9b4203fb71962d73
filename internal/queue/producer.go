package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/roster/internal/roster"
)

// Publisher sends roster events to the events queue.
type Publisher struct {
	pub JSONPublisher
}

// NewPublisher creates a publisher writing through pub.
func NewPublisher(pub JSONPublisher) *Publisher {
	return &Publisher{pub: pub}
}

// Notify publishes event.
func (p *Publisher) Notify(ctx context.Context, event roster.Event) error {
	if err := p.pub.PublishJSON(ctx, EventsQueueName, event); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	slog.Debug("published roster event",
		"type", event.Type,
		"student_id", event.Student.ID,
	)
	return nil
}

var _ roster.Notifier = (*Publisher)(nil)
