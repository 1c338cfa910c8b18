package main

import (
	"fmt"
	"time"

	"github.com/matheus3301/blackzap/internal/instance"
	"github.com/matheus3301/blackzap/internal/lock"
	"github.com/spf13/cobra"
)

func newHealthCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show the daemon's phase and counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := e.ctx(cmd)
			defer cancel()
			resp, err := e.remote.Health(ctx)
			if err != nil {
				if owner, ok := lock.Running(instance.Dir(e.instance)); ok {
					return fmt.Errorf("daemon (PID %d) is not responding: %w", owner.PID, err)
				}
				return fmt.Errorf("daemon for instance %q is not running; start it with `bzd --instance %s`", e.instance, e.instance)
			}
			if e.jsonOut {
				return outputJSON(resp)
			}
			fmt.Printf("Instance: %s\n", resp.Instance)
			fmt.Printf("Phase:    %s\n", resp.Phase)
			fmt.Printf("Uptime:   %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
			fmt.Printf("Messages: %d\n", resp.MessageCount)
			return nil
		},
	}
}
