package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mwidera/plenum/internal/progress"
)

const recentFailureLimit = 10

func newStatusCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stored processing state",
		Args:  cobra.NoArgs,
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
			if store.Len() == 0 {
				fmt.Fprintln(out, "No sessions tracked yet; run 'plenum discover' first.")
				return nil
			}

			counts := store.CountByStatus()
			rows := make([][]string, 0, len(counts)+1)
			for _, status := range progress.AllStatuses() {
				if counts[status] == 0 {
					continue
				}
				rows = append(rows, []string{string(status), strconv.Itoa(counts[status])})
			}
			exhausted := 0
			for _, rec := range store.Snapshot() {
				if progress.IsExhausted(rec, cfg.Processing.MaxAttempts) {
					exhausted++
				}
			}
			if exhausted > 0 {
				rows = append(rows, []string{"failed (exhausted)", strconv.Itoa(exhausted)})
			}
			fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))

			failed := store.FailedRecords()
			if len(failed) == 0 {
				return nil
			}
			if len(failed) > recentFailureLimit {
				failed = failed[:recentFailureLimit]
			}
			fmt.Fprintln(out, "Recent failures:")
			failureRows := make([][]string, 0, len(failed))
			for _, rec := range failed {
				attempts := fmt.Sprintf("%d/%d", rec.AttemptCount, cfg.Processing.MaxAttempts)
				note := rec.LastError
				if progress.IsExhausted(rec, cfg.Processing.MaxAttempts) {
					attempts += " (exhausted)"
				}
				failureRows = append(failureRows, []string{
					rec.Identifier,
					string(rec.LastErrorKind),
					attempts,
					note,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Session", "Error", "Attempts", "Detail"},
				failureRows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}
