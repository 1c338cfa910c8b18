package daemon

import (
	"context"
	"path/filepath"
	"time"

	"github.com/matheus3301/blackzap/internal/api"
	"github.com/matheus3301/blackzap/internal/backend"
	"github.com/matheus3301/blackzap/internal/bus"
	"github.com/matheus3301/blackzap/internal/instance"
	"github.com/matheus3301/blackzap/internal/lifecycle"
	"github.com/matheus3301/blackzap/internal/lock"
	"github.com/matheus3301/blackzap/internal/logging"
	"github.com/matheus3301/blackzap/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved instance configuration passed to the fx module.
type Params struct {
	Instance string
	Dir      string // optional override for testing; empty = instance.Dir
	LogLevel string
	Stderr   bool
}

func (p Params) dir() string {
	if p.Dir != "" {
		return p.Dir
	}
	return instance.Dir(p.Instance)
}

func (p Params) socketPath() string { return filepath.Join(p.dir(), "bzd.sock") }
func (p Params) dbPath() string     { return filepath.Join(p.dir(), "blackzap.db") }
func (p Params) logPath() string    { return filepath.Join(p.dir(), "logs", "bzd.log") }

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideMachine,
			provideLock,
			provideStore,
			provideService,
			provideAPI,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Path:      p.logPath(),
		Instance:  p.Instance,
		Component: "bzd",
		Level:     p.LogLevel,
		Stderr:    p.Stderr,
	})
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideMachine(b *bus.Bus) *lifecycle.Machine {
	return lifecycle.NewDaemon(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring instance lock", zap.String("dir", p.dir()))
	l, err := lock.Acquire(p.dir(), p.Instance)
	if err != nil {
		return nil, err
	}
	logger.Info("instance lock acquired")
	return l, nil
}

// provideStore takes the lock as a dependency so the database is never
// opened by a second daemon.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	db, err := store.Open(p.dbPath())
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("from", result.From), zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", p.dbPath()))
	return db, nil
}

func provideService(db *store.DB, b *bus.Bus, logger *zap.Logger) *backend.Service {
	return backend.NewService(db, b, logger, backend.Options{})
}

func provideAPI(p Params, svc *backend.Service, machine *lifecycle.Machine, logger *zap.Logger) *api.Server {
	s := api.NewServer(svc, logger)
	s.SetHealth(func(ctx context.Context) (*api.HealthResponse, error) {
		count, err := svc.MessageCount(ctx)
		if err != nil {
			return nil, err
		}
		return &api.HealthResponse{
			Instance:     p.Instance,
			Phase:        string(machine.Current()),
			UptimeMs:     time.Since(machine.Since()).Milliseconds(),
			MessageCount: count,
		}, nil
	})
	return s
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *store.DB, machine *lifecycle.Machine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
					_ = machine.Transition(lifecycle.Error)
				}
			}()
			return machine.Transition(lifecycle.Serving)
		},
		OnStop: func(ctx context.Context) error {
			_ = machine.Transition(lifecycle.Stopping)
			srv.Stop(ctx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
