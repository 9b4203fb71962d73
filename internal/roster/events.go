package roster

import (
	"context"
	"time"

	"github.com/felixgeelhaar/roster/internal/domain"
)

// EventType names a roster change.
type EventType string

const (
	EventStudentCreated EventType = "student.created"
	EventStudentUpdated EventType = "student.updated"
	EventStudentRemoved EventType = "student.removed"
)

// Event describes a change that has already been persisted.
type Event struct {
	Type       EventType      `json:"type"`
	Student    domain.Student `json:"student"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Notifier receives roster events after each successful mutation.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event Event) error

func (f NotifierFunc) Notify(ctx context.Context, event Event) error {
	return f(ctx, event)
}
