package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/roster/internal/config"
	"github.com/felixgeelhaar/roster/internal/queue"
	"github.com/felixgeelhaar/roster/internal/roster"
)

// cmdWatch prints roster events published by the daemon until interrupted
func cmdWatch() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Events.AMQPURL == "" {
		return errors.New("no events broker configured (set amqp_url in secrets.yaml or ROSTER_AMQP_URL)")
	}

	conn, err := queue.NewConnection(cfg.Events.AMQPURL)
	if err != nil {
		return fmt.Errorf("connect events broker: %w", err)
	}
	defer conn.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	consumer := queue.NewConsumer(conn, func(ctx context.Context, event roster.Event) error {
		fmt.Println(formatEvent(event))
		return nil
	})
	if err := consumer.Start(ctx); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "Watching roster events (Ctrl+C to stop)...")
	<-ctx.Done()
	consumer.Stop()
	return nil
}

func formatEvent(event roster.Event) string {
	s := event.Student
	return fmt.Sprintf("%s  %-16s %s  %s (%s)",
		event.OccurredAt.Local().Format("2006-01-02 15:04:05"), event.Type, s.ID, s.Nome, s.Matricula)
}
