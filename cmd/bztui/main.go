package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/blackzap/internal/bus"
	"github.com/matheus3301/blackzap/internal/chat"
	"github.com/matheus3301/blackzap/internal/client"
	"github.com/matheus3301/blackzap/internal/config"
	"github.com/matheus3301/blackzap/internal/instance"
	"github.com/matheus3301/blackzap/internal/lock"
	"github.com/matheus3301/blackzap/internal/logging"
	"github.com/matheus3301/blackzap/internal/notify"
	"github.com/matheus3301/blackzap/internal/prefs"
	"github.com/matheus3301/blackzap/internal/tui"
	"go.uber.org/zap"
)

func main() {
	instanceFlag := flag.String("instance", "", "instance name (overrides config default)")
	flag.Parse()

	if err := run(*instanceFlag); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(instanceFlag string) error {
	name := instance.Resolve(instanceFlag)
	if err := instance.ValidateName(name); err != nil {
		return err
	}
	if err := instance.EnsureDir(name); err != nil {
		return err
	}
	cfg, err := config.LoadOrDefault(instance.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Path:      instance.LogPath(name, "bztui"),
		Instance:  name,
		Component: "bztui",
	})
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	socketPath := instance.SocketPath(name)
	if !daemonHealthy(socketPath, logger) {
		if owner, ok := lock.Running(instance.Dir(name)); ok {
			return fmt.Errorf("daemon for instance %q (PID %d) is not responding", name, owner.PID)
		}
		fmt.Fprintf(os.Stderr, "daemon not running for instance %q, starting...\n", name)
		if err := startDaemon(name); err != nil {
			return fmt.Errorf("start daemon: %w", err)
		}
		if !waitForDaemon(socketPath, 10*time.Second, logger) {
			return fmt.Errorf("daemon did not become ready")
		}
	}

	store, err := prefs.Open(instance.PrefsPath(name))
	if err != nil {
		return err
	}
	remote, err := client.Dial(socketPath, store, logger)
	if err != nil {
		return fmt.Errorf("connect to daemon: %w", err)
	}
	defer func() { _ = remote.Close() }()

	b := bus.New()
	tray := notify.NewTray(store, cfg.Notifications.Enabled, b, logger)
	ctrl := chat.NewController(chat.Options{
		Client:    remote,
		Presenter: tray,
		Marker:    store,
		Bus:       b,
		Logger:    logger,
		Config:    cfg.Client,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctrl.Start(ctx)
	defer ctrl.Stop()

	app := tui.NewApp(tui.Options{
		Controller: ctrl,
		Tray:       tray,
		Instance:   name,
		Logger:     logger,
	})
	logger.Info("tui started")
	return app.Run()
}

// daemonHealthy reports whether a daemon answers the health check on socketPath.
func daemonHealthy(socketPath string, logger *zap.Logger) bool {
	if _, err := os.Stat(socketPath); err != nil {
		return false
	}
	c, err := client.Dial(socketPath, nil, logger)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.Health(ctx)
	return err == nil
}

func startDaemon(name string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	bzd := filepath.Join(filepath.Dir(executable), "bzd")
	if _, err := os.Stat(bzd); err != nil {
		bzd = "bzd"
	}

	cmd := exec.Command(bzd, "--instance", name)
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

// waitForDaemon polls the health check until it passes or timeout elapses.
func waitForDaemon(socketPath string, timeout time.Duration, logger *zap.Logger) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if daemonHealthy(socketPath, logger) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}
