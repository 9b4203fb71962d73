package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/roster/internal/auth"
	"github.com/felixgeelhaar/roster/internal/config"
	"github.com/felixgeelhaar/roster/internal/storage/postgres"
)

// cmdInit creates the roster directory, a default config and the first user
func cmdInit() error {
	fmt.Println("Roster - First-Time Setup")
	fmt.Println("=========================")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Creating ~/.roster directory structure... ")
	rosterDir, err := config.EnsureRosterDir()
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	fmt.Println("✓")

	configPath := filepath.Join(rosterDir, "config.yaml")
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		fmt.Print("Creating default configuration... ")
		if err := config.SaveLocalConfigTo(rosterDir, config.DefaultLocalConfig()); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Println("✓")
	} else {
		fmt.Println("Configuration already exists ✓")
	}

	cfg, err := config.LoadLocalConfigFrom(rosterDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println()
	fmt.Println("Administrator Account")
	fmt.Println("---------------------")

	if cfg.Auth.Verifier == config.VerifierStatic && len(cfg.Auth.Hashes) > 0 {
		fmt.Printf("%d user(s) already configured ✓\n", len(cfg.Auth.Hashes))
	} else {
		username := prompt(reader, os.Stdout, "Username", "admin")
		password, err := promptPassword(reader, os.Stdout)
		if err != nil {
			return err
		}
		if err := createUser(context.Background(), rosterDir, cfg, username, password); err != nil {
			return err
		}
		fmt.Printf("  ✓ User %q created\n", username)
	}

	fmt.Println()
	fmt.Println("Setup Complete!")
	fmt.Println("===============")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. roster start    # Start the daemon")
	fmt.Println("  2. roster login    # Open a session")
	fmt.Println("  3. roster add      # Add the first student")
	fmt.Println()
	fmt.Println("Storage backend: " + cfg.Storage.Backend + " (edit " + configPath + " to change)")

	return nil
}

// createUser stores a bcrypt hash for username in secrets.yaml, or in the
// roster_users table when the postgres verifier is configured.
func createUser(ctx context.Context, rosterDir string, cfg *config.LocalConfig, username, password string) error {
	if cfg.Auth.Verifier == config.VerifierPostgres {
		pgCfg := postgres.DefaultConfig()
		pgCfg.URL = cfg.Storage.Postgres.URL
		pool, err := postgres.Connect(ctx, pgCfg)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		return auth.NewPostgresVerifier(pool).SetPassword(ctx, username, password)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	secrets, err := config.LoadSecrets(rosterDir)
	if err != nil {
		return err
	}
	if secrets.Users == nil {
		secrets.Users = make(map[string]string)
	}
	secrets.Users[username] = hash

	return config.SaveSecrets(rosterDir, secrets)
}

// cmdHashPassword prints a bcrypt hash for secrets.yaml
func cmdHashPassword() error {
	reader := bufio.NewReader(os.Stdin)
	password, err := promptPassword(reader, os.Stderr)
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

// prompt reads one line, returning def for an empty answer.
func prompt(r *bufio.Reader, w io.Writer, label, def string) string {
	if def != "" {
		fmt.Fprintf(w, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(w, "%s: ", label)
	}

	line, _ := r.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

// promptPassword asks for a password twice.
func promptPassword(r *bufio.Reader, w io.Writer) (string, error) {
	password := prompt(r, w, "Password", "")
	if password == "" {
		return "", auth.ErrEmptyPassword
	}
	if confirm := prompt(r, w, "Confirm password", ""); confirm != password {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}

// confirm asks a yes/no question, defaulting to no.
func confirm(r *bufio.Reader, w io.Writer, question string) bool {
	answer := strings.ToLower(prompt(r, w, question+" (y/N)", ""))
	return answer == "y" || answer == "yes" || answer == "s" || answer == "sim"
}
