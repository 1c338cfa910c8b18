package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/blackzap/internal/backend"
	"github.com/matheus3301/blackzap/internal/client"
	"github.com/matheus3301/blackzap/internal/config"
	"github.com/matheus3301/blackzap/internal/instance"
	"github.com/matheus3301/blackzap/internal/logging"
	"github.com/matheus3301/blackzap/internal/prefs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const callTimeout = 10 * time.Second

// env is what every subcommand gets once the root pre-run has resolved the
// instance and connected to its daemon.
type env struct {
	instance string
	jsonOut  bool
	verbose  bool

	cfg    *config.Config
	prefs  *prefs.Store
	logger *zap.Logger
	remote *client.Remote
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, backend.ErrNoSession) || errors.Is(err, backend.ErrUnauthenticated) {
			fmt.Fprintln(os.Stderr, "hint: run `bzctl signin <email>` first")
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	e := &env{}
	var instanceFlag string

	root := &cobra.Command{
		Use:           "bzctl",
		Short:         "Command line client for a blackzap instance",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.open(instanceFlag)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return e.close()
		},
	}
	root.PersistentFlags().StringVar(&instanceFlag, "instance", "", "instance name (overrides config default)")
	root.PersistentFlags().BoolVar(&e.jsonOut, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "also log to stderr")

	root.AddCommand(
		newHealthCmd(e),
		newSignUpCmd(e),
		newSignInCmd(e),
		newSignOutCmd(e),
		newWhoamiCmd(e),
		newChatsCmd(e),
		newSendCmd(e),
		newReadCmd(e),
		newThreadCmd(e),
		newSearchCmd(e),
		newStatusCmd(e),
		newProfileCmd(e),
		newWatchCmd(e),
	)
	return root
}

func (e *env) open(instanceFlag string) error {
	e.instance = instance.Resolve(instanceFlag)
	if err := instance.ValidateName(e.instance); err != nil {
		return err
	}
	if err := instance.EnsureDir(e.instance); err != nil {
		return err
	}

	cfg, err := config.LoadOrDefault(instance.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	e.cfg = cfg

	e.logger, err = logging.New(logging.Options{
		Path:      instance.LogPath(e.instance, "bzctl"),
		Instance:  e.instance,
		Component: "bzctl",
		Stderr:    e.verbose,
	})
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}

	e.prefs, err = prefs.Open(instance.PrefsPath(e.instance))
	if err != nil {
		return err
	}

	e.remote, err = client.Dial(instance.SocketPath(e.instance), e.prefs, e.logger)
	if err != nil {
		return fmt.Errorf("cannot connect to daemon for instance %q: %w", e.instance, err)
	}
	return nil
}

func (e *env) close() error {
	if e.logger != nil {
		_ = e.logger.Sync()
	}
	if e.remote != nil {
		return e.remote.Close()
	}
	return nil
}

func (e *env) ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), callTimeout)
}

// session returns the stored session or ErrNoSession.
func (e *env) session(ctx context.Context) (*backend.Session, error) {
	sess, err := e.remote.Session(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, backend.ErrNoSession
	}
	return sess, nil
}
