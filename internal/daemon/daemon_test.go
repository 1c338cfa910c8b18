package daemon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/blackzap/internal/backend"
	"github.com/matheus3301/blackzap/internal/client"
	"github.com/matheus3301/blackzap/internal/lifecycle"
	"github.com/matheus3301/blackzap/internal/lock"
	"go.uber.org/fx"
)

// testParams uses a short /tmp path to stay under the 104-char Unix socket
// limit on macOS.
func testParams(t *testing.T) Params {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "bz-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return Params{Instance: "test", Dir: dir, LogLevel: "debug"}
}

func startApp(t *testing.T, p Params) *fx.App {
	t.Helper()
	app := fx.New(Module(p), fx.NopLogger)
	if err := app.Err(); err != nil {
		t.Fatalf("fx.New() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return app
}

func stopApp(t *testing.T, app *fx.App) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func dial(t *testing.T, p Params) *client.Remote {
	t.Helper()
	r, err := client.Dial(p.socketPath(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestDaemonLifecycle(t *testing.T) {
	p := testParams(t)
	app := startApp(t, p)
	ctx := context.Background()

	info, err := os.Stat(p.socketPath())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("socket perm = %o, want 600", perm)
	}
	if _, err := os.Stat(filepath.Join(p.Dir, "logs", "bzd.log")); err != nil {
		t.Errorf("log file: %v", err)
	}

	ana := dial(t, p)
	health, err := ana.Health(ctx)
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if health.Instance != "test" || health.Phase != string(lifecycle.Serving) || health.MessageCount != 0 {
		t.Errorf("health = %+v", health)
	}

	anaSess, err := ana.SignUp(ctx, "ana@example.com", "secret123", "Ana")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	bruno := dial(t, p)
	if _, err := bruno.SignUp(ctx, "bruno@example.com", "secret123", "Bruno"); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	feed, cancel := ana.Subscribe(ctx, backend.TableMessages)
	defer cancel()

	if _, err := bruno.SendMessage(ctx, anaSess.UserID, "oi"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	select {
	case c := <-feed:
		if c.Table != backend.TableMessages || c.Type != backend.Insert || c.Field("text") != "oi" {
			t.Errorf("change = %+v", c)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no realtime change")
	}

	health, err = ana.Health(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if health.MessageCount != 1 {
		t.Errorf("message count = %d, want 1", health.MessageCount)
	}

	stopApp(t, app)
	if _, err := os.Stat(p.socketPath()); !os.IsNotExist(err) {
		t.Errorf("socket not removed: %v", err)
	}
	if _, ok := lock.Running(p.Dir); ok {
		t.Error("lock still held after stop")
	}
}

func TestSecondDaemonRefused(t *testing.T) {
	p := testParams(t)
	app := startApp(t, p)
	defer stopApp(t, app)

	second := fx.New(Module(p), fx.NopLogger)
	err := second.Err()
	if err == nil {
		t.Fatal("second daemon started on a locked instance")
	}
	if !strings.Contains(err.Error(), "instance lock held") {
		t.Errorf("error = %v", err)
	}
}

func TestDataSurvivesRestart(t *testing.T) {
	p := testParams(t)
	ctx := context.Background()

	app := startApp(t, p)
	r := dial(t, p)
	if _, err := r.SignUp(ctx, "ana@example.com", "secret123", "Ana"); err != nil {
		t.Fatal(err)
	}
	_ = r.Close()
	stopApp(t, app)

	app = startApp(t, p)
	defer stopApp(t, app)
	r = dial(t, p)
	if _, err := r.SignIn(ctx, "ana@example.com", "secret123"); err != nil {
		t.Fatalf("SignIn() after restart error = %v", err)
	}
}

func TestStopWithOpenWatch(t *testing.T) {
	p := testParams(t)
	app := startApp(t, p)
	ctx := context.Background()

	r := dial(t, p)
	if _, err := r.SignUp(ctx, "ana@example.com", "secret123", "Ana"); err != nil {
		t.Fatal(err)
	}
	feed, cancel := r.Subscribe(ctx, backend.TableMessages, backend.TableStatus)
	defer cancel()

	stopCtx, stopCancel := context.WithTimeout(ctx, 5*time.Second)
	defer stopCancel()
	start := time.Now()
	if err := app.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Stop() took %v with a watcher attached", elapsed)
	}
	if _, ok := lock.Running(p.Dir); ok {
		t.Error("lock still held after stop")
	}

	select {
	case _, ok := <-feed:
		if ok {
			t.Error("unexpected change after stop")
		}
	case <-time.After(3 * time.Second):
		t.Error("watch feed not closed by stop")
	}
}
