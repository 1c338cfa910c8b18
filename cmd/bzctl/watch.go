package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matheus3301/blackzap/internal/backend"
	"github.com/matheus3301/blackzap/internal/bus"
	"github.com/matheus3301/blackzap/internal/chat"
	"github.com/matheus3301/blackzap/internal/lifecycle"
	"github.com/matheus3301/blackzap/internal/notify"
	"github.com/spf13/cobra"
)

func newWatchCmd(e *env) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow realtime changes until interrupted",
		Long: "Follow realtime changes until interrupted. By default incoming messages are\n" +
			"shown as notifications and the unread total is printed when it changes;\n" +
			"with --raw every row change is printed as received.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if raw {
				return e.watchRaw(ctx)
			}
			return e.watchChats(ctx)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print row changes instead of notifications")
	return cmd
}

func (e *env) watchRaw(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	_, err := e.session(callCtx)
	cancel()
	if err != nil {
		return err
	}

	feed, unsubscribe := e.remote.Subscribe(ctx, backend.TableMessages, backend.TableStatus, backend.TableProfiles)
	defer unsubscribe()
	for c := range feed {
		if e.jsonOut {
			if err := outputJSON(c); err != nil {
				return err
			}
			continue
		}
		fmt.Printf("%s %s %s\n", c.Table, c.Type, c.Record.String())
	}
	return ctx.Err()
}

// watchChats runs the full chat controller with notifications printed to
// stdout.
func (e *env) watchChats(ctx context.Context) error {
	b := bus.New()
	tray := notify.NewTray(e.prefs, e.cfg.Notifications.Enabled, b, e.logger)
	tray.OnShow(func(n notify.Notification) {
		if e.jsonOut {
			_ = outputJSON(n)
			return
		}
		fmt.Printf("🔔 %s: %s\n", n.Title, n.Body)
	})

	ctrl := chat.NewController(chat.Options{
		Client:    e.remote,
		Presenter: tray,
		Bus:       b,
		Logger:    e.logger,
		Config:    e.cfg.Client,
	})
	// Not looking at any conversation: every incoming message notifies.
	ctrl.SetVisible(false)

	changes, unsubscribe := ctrl.Changes()
	defer unsubscribe()
	ctrl.Start(ctx)
	defer ctrl.Stop()

	lastUnread, lastPhase := -1, lifecycle.Phase("")
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-changes:
			st, ok := evt.Payload.(chat.State)
			if !ok {
				continue
			}
			if st.Phase != lastPhase {
				lastPhase = st.Phase
				if st.Phase == lifecycle.SignedOut {
					return backend.ErrNoSession
				}
				if !e.jsonOut {
					fmt.Printf("-- %s\n", st.Phase)
				}
			}
			if st.Phase != lifecycle.Ready || st.ContactsLoading {
				continue
			}
			if total := st.TotalUnread(); total != lastUnread {
				lastUnread = total
				if !e.jsonOut {
					fmt.Printf("-- %d unread in %d chat(s)\n", total, len(st.Contacts))
				}
			}
		}
	}
}
