package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mwidera/plenum/internal/services"
)

func newRunCommand(cc *commandContext) *cobra.Command {
	var offline bool
	var force bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Pick sessions interactively and process them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !stdinIsTerminal() {
				return errors.New("run needs an interactive terminal; use 'plenum process' for scripted selections")
			}
			return runInteractive(cmd, cc, force, offline)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Reprocess sessions that already completed")
	cmd.Flags().BoolVar(&offline, "offline", false, "Select from the cached catalog without hitting the site")
	return cmd
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func runInteractive(cmd *cobra.Command, cc *commandContext, force, offline bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	store, lock, err := cc.openStore(ctx)
	if err != nil {
		return err
	}
	defer lock.Release()

	items, err := cc.catalogItems(ctx, store, offline)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "plenum %s | %s in catalog\n\n", version, pluralSessions(len(items)))
	fmt.Fprintln(out, renderCatalogTable(items, store.Snapshot()))
	fmt.Fprintln(out, `Enter a selection ("1,3-5", "all", "pending", "failed", "recent:N"); empty line quits.`)

	reader := bufio.NewReader(cmd.InOrStdin())
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(out, "> ")
		line, readErr := reader.ReadString('\n')
		expr := strings.TrimSpace(line)
		if expr == "" {
			return nil
		}

		runErr := processSelection(cmd, cc, store, items, expr, force)
		switch {
		case runErr == nil:
		case errors.Is(runErr, services.ErrInvalidSelection):
			fmt.Fprintf(out, "Invalid selection: %v\n", runErr)
		case errors.Is(runErr, errPartialFailure):
			fmt.Fprintln(out, runErr)
		default:
			return runErr
		}
		if readErr != nil {
			// EOF after the last expression.
			return nil
		}
		fmt.Fprintln(out, renderCatalogTable(items, store.Snapshot()))
	}
}
