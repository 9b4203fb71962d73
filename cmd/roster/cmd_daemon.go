package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/felixgeelhaar/roster/internal/config"
)

// daemonURL returns the base URL of the local daemon from config.
func daemonURL() string {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		cfg = config.DefaultLocalConfig()
	}
	return "http://" + cfg.Daemon.Addr()
}

// cmdStart starts the daemon in the background
func cmdStart() error {
	if isRunning() {
		fmt.Println("✓ Daemon is already running")
		return nil
	}

	rosterDir, err := config.EnsureRosterDir()
	if err != nil {
		return fmt.Errorf("setup roster directory: %w", err)
	}

	rosterdPath, err := findDaemonBinary()
	if err != nil {
		return fmt.Errorf("find daemon binary: %w", err)
	}

	cmd := exec.Command(rosterdPath)
	cmd.Dir = rosterDir
	configureDaemonProcess(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Print("Starting daemon...")
	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if isRunning() {
			fmt.Println(" ✓")
			fmt.Printf("Daemon running at %s\n", daemonURL())
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon failed to start (see %s)", filepath.Join(rosterDir, "logs", "rosterd.log"))
}

// cmdStop stops the daemon
func cmdStop() error {
	if !isRunning() {
		fmt.Println("Daemon is not running")
		return nil
	}

	rosterDir, err := config.RosterDir()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(rosterDir, pidFile))
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("parse PID: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}

	fmt.Print("Stopping daemon...")
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("send signal: %w", err)
	}

	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		if !isRunning() {
			fmt.Println(" ✓")
			// Sessions die with the daemon.
			_ = removeToken()
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon did not stop gracefully")
}

// cmdStatus shows daemon status
func cmdStatus() error {
	if !isRunning() {
		fmt.Println("Status: stopped")
		return nil
	}

	status, err := newClient(daemonURL(), "").Status(context.Background())
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}

	fmt.Printf("Status:    %s\n", status.Status)
	fmt.Printf("Version:   %s\n", status.Version)
	fmt.Printf("Backend:   %s\n", status.Backend)
	if status.Location != "" {
		fmt.Printf("Location:  %s\n", status.Location)
	}
	fmt.Printf("Students:  %d\n", status.Students)
	fmt.Printf("Sessions:  %d\n", status.Sessions)
	fmt.Printf("Uptime:    %s\n", status.Uptime)
	if status.Events != nil {
		fmt.Printf("Events:    %d published, %d failed, %d dropped\n",
			status.Events.Published, status.Events.Failed, status.Events.Dropped)
	}
	fmt.Printf("Address:   %s\n", daemonURL())

	return nil
}

// isRunning checks if the daemon is running by calling the health endpoint
func isRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return newClient(daemonURL(), "").Healthy(ctx)
}

// findDaemonBinary locates the rosterd binary
func findDaemonBinary() (string, error) {
	if path, err := exec.LookPath("rosterd"); err == nil {
		return path, nil
	}

	if self, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(self), "rosterd")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	for _, path := range []string{"/usr/local/bin/rosterd", "./rosterd"} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("rosterd binary not found (build with 'go build ./cmd/rosterd')")
}
