package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mwidera/plenum/internal/catalog"
	"github.com/mwidera/plenum/internal/progress"
	"github.com/mwidera/plenum/internal/selection"
	"github.com/mwidera/plenum/internal/services"
)

func newProcessCommand(cc *commandContext) *cobra.Command {
	var (
		all     bool
		pending bool
		failed  bool
		force   bool
		offline bool
		recent  int
	)

	cmd := &cobra.Command{
		Use:   "process [selection]",
		Short: "Fetch, convert and transcribe selected sessions",
		Long: `Process runs the pipeline over a selection of discovered sessions.

Selections are positions in the catalog table: comma lists ("1,3,5"),
ranges ("1-10"), or the keywords "all", "pending", "failed" and "recent:N".
Flags are shorthands for the keywords; give exactly one selection.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, err := selectionExpr(args, all, pending, failed, recent)
			if err != nil {
				return err
			}
			return runPipeline(cmd, cc, expr, force, offline)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Process every session in the catalog")
	cmd.Flags().BoolVar(&pending, "pending", false, "Process sessions not yet completed")
	cmd.Flags().BoolVar(&failed, "failed", false, "Retry failed sessions with attempts left")
	cmd.Flags().IntVar(&recent, "recent", 0, "Process the N most recent sessions")
	cmd.Flags().BoolVar(&force, "force", false, "Reprocess sessions that already completed")
	cmd.Flags().BoolVar(&offline, "offline", false, "Select from the cached catalog without hitting the site")
	return cmd
}

// selectionExpr folds the positional argument and the shorthand flags into
// one expression, rejecting ambiguous combinations.
func selectionExpr(args []string, all, pending, failed bool, recent int) (string, error) {
	var exprs []string
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		exprs = append(exprs, strings.TrimSpace(args[0]))
	}
	if all {
		exprs = append(exprs, "all")
	}
	if pending {
		exprs = append(exprs, "pending")
	}
	if failed {
		exprs = append(exprs, "failed")
	}
	if recent != 0 {
		exprs = append(exprs, fmt.Sprintf("recent:%d", recent))
	}

	switch len(exprs) {
	case 0:
		return "", services.Wrap(services.ErrInvalidSelection, "cli", "",
			"no selection given; pass an expression or one of --all/--pending/--failed/--recent", nil)
	case 1:
		return exprs[0], nil
	default:
		return "", services.Wrap(services.ErrInvalidSelection, "cli", "",
			"conflicting selections: "+strings.Join(exprs, ", "), nil)
	}
}

func runPipeline(cmd *cobra.Command, cc *commandContext, expr string, force, offline bool) error {
	ctx := cmd.Context()

	store, lock, err := cc.openStore(ctx)
	if err != nil {
		return err
	}
	defer lock.Release()

	items, err := cc.catalogItems(ctx, store, offline)
	if err != nil {
		return err
	}

	return processSelection(cmd, cc, store, items, expr, force)
}

// processSelection resolves a selection over an already-loaded catalog and
// runs the pipeline. The caller holds the run lock.
func processSelection(cmd *cobra.Command, cc *commandContext, store *progress.Store, items []catalog.Item, expr string, force bool) error {
	ctx := cmd.Context()
	cfg, err := cc.ensureConfig()
	if err != nil {
		return err
	}

	identifiers, err := selection.Resolve(items, store.Snapshot(), expr, cfg.Processing.MaxAttempts)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(identifiers) == 0 {
		fmt.Fprintln(out, "Nothing to process.")
		return nil
	}

	orch, err := cc.newOrchestrator(store)
	if err != nil {
		return err
	}
	orch.SetForce(force)
	if err := orch.Preflight(ctx); err != nil {
		return err
	}

	stats, err := orch.Run(ctx, selectItems(items, identifiers))
	if err != nil {
		return err
	}

	fmt.Fprintln(out, renderStatsTable(stats))
	if stats.HasFailures() {
		return errPartialFailure
	}
	return nil
}
