package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwidera/plenum/internal/progress"
	"github.com/mwidera/plenum/internal/services"
)

func newRetryCommand(cc *commandContext) *cobra.Command {
	var exhausted bool

	cmd := &cobra.Command{
		Use:   "retry <session-id|failed>",
		Short: "Reset failed sessions so the next run picks them up",
		Long: `Retry moves failed sessions back to pending while keeping their attempt
history. Pass a session identifier to reset one session, or "failed" to reset
every failed session with attempts left. Sessions that used their whole
attempt budget need --exhausted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}

			store, lock, err := cc.openStore(ctx)
			if err != nil {
				return err
			}
			defer lock.Release()

			out := cmd.OutOrStdout()
			maxAttempts := cfg.Processing.MaxAttempts

			if args[0] == "failed" {
				reset, err := resetFailed(ctx, store, maxAttempts, exhausted)
				if err != nil {
					return err
				}
				if reset == 0 {
					fmt.Fprintln(out, "No failed sessions to reset.")
					return nil
				}
				fmt.Fprintf(out, "Reset %s; run 'plenum process --pending' to reprocess.\n", pluralSessions(reset))
				return nil
			}

			rec := store.Get(args[0])
			if rec.Status != progress.StatusFailed {
				return services.Wrap(services.ErrInvalidSelection, "cli", "retry",
					fmt.Sprintf("session %s is %s, not failed", args[0], rec.Status), nil)
			}
			if progress.IsExhausted(rec, maxAttempts) && !exhausted {
				return services.Wrap(services.ErrInvalidSelection, "cli", "retry",
					fmt.Sprintf("session %s used all %d attempts; pass --exhausted to reset it anyway", args[0], maxAttempts), nil)
			}
			rec.ResetForRetry()
			if err := store.Upsert(ctx, rec); err != nil {
				return err
			}
			fmt.Fprintf(out, "Session %s reset to pending.\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&exhausted, "exhausted", false, "Also reset sessions that used their whole attempt budget")
	return cmd
}

func resetFailed(ctx context.Context, store *progress.Store, maxAttempts int, includeExhausted bool) (int, error) {
	reset := 0
	for _, rec := range store.FailedRecords() {
		if progress.IsExhausted(rec, maxAttempts) && !includeExhausted {
			continue
		}
		rec.ResetForRetry()
		if err := store.Upsert(ctx, rec); err != nil {
			return reset, err
		}
		reset++
	}
	return reset, nil
}
