//go:build integration

package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/roster/internal/domain"
	"github.com/felixgeelhaar/roster/internal/queue"
	"github.com/felixgeelhaar/roster/internal/roster"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

// setupRabbitMQ creates a RabbitMQ container for testing
func setupRabbitMQ(t *testing.T) (string, func()) {
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.12-management")
	if err != nil {
		t.Fatalf("failed to start RabbitMQ container: %v", err)
	}

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("failed to get AMQP URL: %v", err)
	}

	cleanup := func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return amqpURL, cleanup
}

func TestIntegration_Connection_ConnectAndClose(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}

	if !conn.IsConnected() {
		t.Error("expected connection to be active")
	}

	if err := conn.Close(); err != nil {
		t.Errorf("failed to close connection: %v", err)
	}
}

func TestIntegration_Connection_InvalidURL(t *testing.T) {
	_, err := queue.NewConnection("amqp://invalid:5672")
	if err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestIntegration_StoreEventsReachConsumer(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	persister, err := roster.NewFilePersister(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilePersister() error = %v", err)
	}
	store, err := roster.Open(ctx, persister)
	if err != nil {
		t.Fatalf("roster.Open() error = %v", err)
	}

	notifier := queue.NewResilientNotifier(queue.NewPublisher(conn), queue.DefaultResilientConfig())
	store.SetNotifier(notifier)

	received := make(chan roster.Event, 4)
	consumer := queue.NewConsumer(conn, func(ctx context.Context, e roster.Event) error {
		received <- e
		return nil
	})
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("consumer.Start() error = %v", err)
	}
	defer consumer.Stop()

	student, err := store.Add(ctx, domain.Draft{
		Nome:           "Ana Silva",
		Matricula:      "A1",
		Email:          "ana@x.com",
		DataNascimento: "2000-01-01",
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := store.Remove(ctx, student.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	notifier.Close()

	want := []roster.EventType{roster.EventStudentCreated, roster.EventStudentRemoved}
	for _, typ := range want {
		select {
		case e := <-received:
			if e.Type != typ || e.Student.ID != student.ID {
				t.Errorf("event = %s/%s; want %s/%s", e.Type, e.Student.ID, typ, student.ID)
			}
		case <-time.After(10 * time.Second):
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}
