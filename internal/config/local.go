package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Credential verifiers.
const (
	VerifierStatic   = "static"
	VerifierPostgres = "postgres"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// LocalConfig holds configuration for the roster daemon and CLI
type LocalConfig struct {
	Daemon  DaemonConfig  `yaml:"daemon"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	Events  EventsConfig  `yaml:"events"`
}

// DaemonConfig holds daemon server settings
type DaemonConfig struct {
	Port     int    `yaml:"port"`
	Bind     string `yaml:"bind"`
	LogLevel string `yaml:"log_level"`

	// LoginRatePerMinute caps login attempts per client address.
	LoginRatePerMinute int `yaml:"login_rate_per_minute"`
}

// Addr returns the listen address.
func (d DaemonConfig) Addr() string {
	return net.JoinHostPort(d.Bind, strconv.Itoa(d.Port))
}

// StorageConfig selects where the roster blob lives.
type StorageConfig struct {
	Backend  string         `yaml:"backend"`
	File     FileConfig     `yaml:"file"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// FileConfig configures the JSON file backend. An empty Dir means ~/.roster/data.
type FileConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// SQLiteConfig configures the SQLite backend. An empty Path means ~/.roster/roster.db.
type SQLiteConfig struct {
	Path string `yaml:"path,omitempty"`
}

// RedisConfig configures the Redis backend
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
	Password string `yaml:"-"` // Loaded from secrets.yaml
}

// PostgresConfig configures the PostgreSQL backend and verifier
type PostgresConfig struct {
	MaxConns int32  `yaml:"max_conns"`
	URL      string `yaml:"-"` // Loaded from secrets.yaml
}

// AuthConfig selects how credentials are checked
type AuthConfig struct {
	Verifier string `yaml:"verifier"`

	// Hashes maps usernames to bcrypt hashes for the static verifier.
	Hashes map[string]string `yaml:"-"` // Loaded from secrets.yaml
}

// EventsConfig controls publishing of roster change events
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Buffer  int    `yaml:"buffer"`
	AMQPURL string `yaml:"-"` // Loaded from secrets.yaml
}

// SecretsConfig holds credentials loaded from secrets.yaml
type SecretsConfig struct {
	Users         map[string]string `yaml:"users,omitempty"`
	DatabaseURL   string            `yaml:"database_url,omitempty"`
	RedisPassword string            `yaml:"redis_password,omitempty"`
	AMQPURL       string            `yaml:"amqp_url,omitempty"`
}

// RosterDir returns the path to ~/.roster
func RosterDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".roster"), nil
}

// EnsureRosterDir creates ~/.roster and its subdirectories.
func EnsureRosterDir() (string, error) {
	dir, err := RosterDir()
	if err != nil {
		return "", err
	}

	for _, subdir := range []string{"", "logs", "data"} {
		path := filepath.Join(dir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", fmt.Errorf("create dir %s: %w", path, err)
		}
	}

	return dir, nil
}

// DefaultLocalConfig returns sensible defaults for local mode
func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		Daemon: DaemonConfig{
			Port:               7433,
			Bind:               "127.0.0.1",
			LogLevel:           "info",
			LoginRatePerMinute: 10,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "roster:",
			},
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
		Auth: AuthConfig{
			Verifier: VerifierStatic,
		},
		Events: EventsConfig{
			Buffer: 256,
		},
	}
}

// FileDir returns the directory of the file backend.
func (c *LocalConfig) FileDir(rosterDir string) string {
	if c.Storage.File.Dir != "" {
		return c.Storage.File.Dir
	}
	return filepath.Join(rosterDir, "data")
}

// SQLitePath returns the database file of the sqlite backend.
func (c *LocalConfig) SQLitePath(rosterDir string) string {
	if c.Storage.SQLite.Path != "" {
		return c.Storage.SQLite.Path
	}
	return filepath.Join(rosterDir, "roster.db")
}

// Validate reports the first setting that cannot work.
func (c *LocalConfig) Validate() error {
	if c.Daemon.Port <= 0 || c.Daemon.Port > 65535 {
		return fmt.Errorf("%w: daemon.port %d out of range", ErrInvalidConfig, c.Daemon.Port)
	}

	backends := []string{BackendFile, BackendSQLite, BackendRedis, BackendPostgres}
	if !slices.Contains(backends, c.Storage.Backend) {
		return fmt.Errorf("%w: unknown storage.backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	if c.Storage.Backend == BackendRedis && c.Storage.Redis.Addr == "" {
		return fmt.Errorf("%w: storage.redis.addr is required", ErrInvalidConfig)
	}

	switch c.Auth.Verifier {
	case VerifierStatic, VerifierPostgres:
	default:
		return fmt.Errorf("%w: unknown auth.verifier %q", ErrInvalidConfig, c.Auth.Verifier)
	}

	needsPostgres := c.Storage.Backend == BackendPostgres || c.Auth.Verifier == VerifierPostgres
	if needsPostgres && c.Storage.Postgres.URL == "" {
		return fmt.Errorf("%w: database_url is required for postgres", ErrInvalidConfig)
	}

	if c.Events.Enabled && c.Events.AMQPURL == "" {
		return fmt.Errorf("%w: amqp_url is required when events are enabled", ErrInvalidConfig)
	}
	return nil
}

// LoadLocalConfig loads ~/.roster/config.yaml and secrets.yaml, then applies
// environment overrides.
func LoadLocalConfig() (*LocalConfig, error) {
	dir, err := RosterDir()
	if err != nil {
		return nil, err
	}
	cfg, err := LoadLocalConfigFrom(dir)
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg)
	return cfg, nil
}

// LoadLocalConfigFrom loads config.yaml and secrets.yaml from dir. Missing
// files leave the defaults in place.
func LoadLocalConfigFrom(dir string) (*LocalConfig, error) {
	cfg := DefaultLocalConfig()

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadSecrets(dir, cfg); err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}

	return cfg, nil
}

// LoadSecrets reads secrets.yaml from dir, returning an empty set if absent.
func LoadSecrets(dir string) (*SecretsConfig, error) {
	data, err := os.ReadFile(filepath.Join(dir, "secrets.yaml"))
	if errors.Is(err, os.ErrNotExist) {
		return &SecretsConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read secrets: %w", err)
	}

	var secrets SecretsConfig
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parse secrets: %w", err)
	}
	return &secrets, nil
}

func loadSecrets(dir string, cfg *LocalConfig) error {
	secrets, err := LoadSecrets(dir)
	if err != nil {
		return err
	}

	cfg.Auth.Hashes = secrets.Users
	cfg.Storage.Postgres.URL = secrets.DatabaseURL
	cfg.Storage.Redis.Password = secrets.RedisPassword
	cfg.Events.AMQPURL = secrets.AMQPURL
	return nil
}

// SaveLocalConfig saves configuration to ~/.roster/config.yaml
func SaveLocalConfig(cfg *LocalConfig) error {
	dir, err := EnsureRosterDir()
	if err != nil {
		return err
	}
	return SaveLocalConfigTo(dir, cfg)
}

// SaveLocalConfigTo writes config.yaml into dir.
func SaveLocalConfigTo(dir string, cfg *LocalConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// SaveSecrets writes secrets.yaml into dir, readable by the owner only.
func SaveSecrets(dir string, secrets *SecretsConfig) error {
	data, err := yaml.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}

	path := filepath.Join(dir, "secrets.yaml")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("chmod secrets: %w", err)
	}
	return nil
}
