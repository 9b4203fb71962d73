package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/roster/internal/config"
	"github.com/felixgeelhaar/roster/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

func testConfig(t *testing.T) *config.LocalConfig {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() error = %v", err)
	}
	cfg := config.DefaultLocalConfig()
	cfg.Auth.Hashes = map[string]string{"admin": string(hash)}
	return cfg
}

func TestNewApp_FileBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	a, err := NewApp(ctx, AppConfig{Config: testConfig(t), Dir: dir})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer a.Close()

	if _, err := a.Store.Add(ctx, domain.Draft{
		Nome: "Ana Silva", Matricula: "A1", Email: "ana@x.com", DataNascimento: "2000-01-01",
	}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "students.json")); err != nil {
		t.Errorf("roster file not written: %v", err)
	}
	if want := filepath.Join(dir, "data", "students.json"); a.Location != want {
		t.Errorf("Location = %q, want %q", a.Location, want)
	}

	if _, _, err := a.Sessions.Login(ctx, "admin", "pw"); err != nil {
		t.Errorf("Login() error = %v", err)
	}
	if a.Notifier != nil {
		t.Error("Notifier set with events disabled")
	}
}

func TestNewApp_SQLiteBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.Storage.Backend = config.BackendSQLite

	a, err := NewApp(ctx, AppConfig{Config: cfg, Dir: dir})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	if want := cfg.SQLitePath(dir); a.Location != want {
		t.Errorf("Location = %q, want %q", a.Location, want)
	}
	a.Store.Add(ctx, domain.Draft{
		Nome: "Ana Silva", Matricula: "A1", Email: "ana@x.com", DataNascimento: "2000-01-01",
	})
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewApp(ctx, AppConfig{Config: cfg, Dir: dir})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer reopened.Close()

	if reopened.Store.Len() != 1 {
		t.Errorf("Len() = %d after reopen, want 1", reopened.Store.Len())
	}
}

func TestNewApp_CorruptRosterFailsStartup(t *testing.T) {
	for _, blob := range []string{"not json", "null", `[{"id":"a","nome":"x","matricula":"","email":"bad"}]`} {
		dir := t.TempDir()
		os.MkdirAll(filepath.Join(dir, "data"), 0755)
		os.WriteFile(filepath.Join(dir, "data", "students.json"), []byte(blob), 0644)

		_, err := NewApp(context.Background(), AppConfig{Config: testConfig(t), Dir: dir})
		if !errors.Is(err, domain.ErrStorageCorrupt) {
			t.Errorf("NewApp(%s) error = %v, want ErrStorageCorrupt", blob, err)
		}
	}
}

func TestNewApp_RequireUsers(t *testing.T) {
	cfg := config.DefaultLocalConfig()

	_, err := NewApp(context.Background(), AppConfig{Config: cfg, Dir: t.TempDir(), RequireUsers: true})
	if !errors.Is(err, ErrNoUsers) {
		t.Errorf("NewApp() error = %v, want ErrNoUsers", err)
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = "etcd"

	_, err := NewApp(context.Background(), AppConfig{Config: cfg, Dir: t.TempDir()})
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("NewApp() error = %v, want ErrInvalidConfig", err)
	}
}
