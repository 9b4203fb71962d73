//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/felixgeelhaar/roster/internal/domain"
	"github.com/felixgeelhaar/roster/internal/storage/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a PostgreSQL container and returns a connected pool.
func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "roster",
				"POSTGRES_PASSWORD": "roster",
				"POSTGRES_DB":       "roster",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get port: %v", err)
	}

	cfg := postgres.DefaultConfig()
	cfg.URL = fmt.Sprintf("postgres://roster:roster@%s:%s/roster?sslmode=disable", host, port.Port())

	pool, err := postgres.Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestIntegration_RosterStore(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t)
	store := postgres.NewRosterStore(pool)

	students, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if students != nil {
		t.Errorf("Load() = %v, want nil before first save", students)
	}

	want := []domain.Student{
		{ID: "1", Nome: "Ana Silva", Matricula: "A1", Email: "ana@x.com", DataNascimento: "2000-01-01"},
		{ID: "2", Nome: "Bruno Lima", Matricula: "B2", Email: "bruno@x.com", DataNascimento: "1999-05-06"},
	}
	if err := store.SaveAll(ctx, want); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !slices.Equal(got, want) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestIntegration_RosterStore_Corrupt(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t)

	tests := []struct {
		name  string
		value any
	}{
		{"object", `{"id": 1}`},
		{"json null", "null"},
		{"sql null", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pool.Exec(ctx, `
				INSERT INTO roster_blobs (key, value) VALUES ('students', $1::text::jsonb)
				ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, tt.value)
			if err != nil {
				t.Fatalf("seed blob: %v", err)
			}

			_, err = postgres.NewRosterStore(pool).Load(ctx)
			if !errors.Is(err, domain.ErrStorageCorrupt) {
				t.Errorf("Load() error = %v, want ErrStorageCorrupt", err)
			}
		})
	}
}
