//go:build integration

package redis_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/felixgeelhaar/roster/internal/domain"
	"github.com/felixgeelhaar/roster/internal/roster"
	rosterredis "github.com/felixgeelhaar/roster/internal/storage/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a connected client.
func setupRedis(t *testing.T) *goredis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start Redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get endpoint: %v", err)
	}

	cfg := rosterredis.DefaultConfig()
	cfg.Addr = endpoint
	client, err := rosterredis.Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestIntegration_RosterStore(t *testing.T) {
	ctx := context.Background()
	client := setupRedis(t)
	persister := rosterredis.NewRosterStore(client, rosterredis.DefaultPrefix)

	s, err := roster.Open(ctx, persister)
	if err != nil {
		t.Fatalf("roster.Open() error = %v", err)
	}
	s.Add(ctx, domain.Draft{Nome: "Ana Silva", Matricula: "A1", Email: "ana@x.com", DataNascimento: "2000-01-01"})
	s.Add(ctx, domain.Draft{Nome: "Bruno Lima", Matricula: "B2", Email: "bruno@x.com", DataNascimento: "1999-05-06"})
	want := s.List(ctx)

	reopened, err := roster.Open(ctx, rosterredis.NewRosterStore(client, rosterredis.DefaultPrefix))
	if err != nil {
		t.Fatalf("roster.Open() error = %v", err)
	}
	if !slices.Equal(reopened.List(ctx), want) {
		t.Errorf("List() = %+v, want %+v", reopened.List(ctx), want)
	}
}

func TestIntegration_RosterStore_Corrupt(t *testing.T) {
	ctx := context.Background()
	client := setupRedis(t)

	for _, blob := range []string{"{oops", "null", `{"id":"a"}`} {
		if err := client.Set(ctx, "roster:students", blob, 0).Err(); err != nil {
			t.Fatalf("seed key: %v", err)
		}

		_, err := rosterredis.NewRosterStore(client, rosterredis.DefaultPrefix).Load(ctx)
		if !errors.Is(err, domain.ErrStorageCorrupt) {
			t.Errorf("Load(%s) error = %v, want ErrStorageCorrupt", blob, err)
		}
	}
}
