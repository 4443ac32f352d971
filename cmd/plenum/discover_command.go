package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDiscoverCommand(cc *commandContext) *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Refresh the session catalog from the listing site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, lock, err := cc.openStore(ctx)
			if err != nil {
				return err
			}
			defer lock.Release()

			items, err := cc.refreshCatalog(ctx, store, pages)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderCatalogTable(items, store.Snapshot()))
			fmt.Fprintf(out, "Discovered %s\n", pluralSessions(len(items)))
			return nil
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 0, "Listing pages to scan (default from config)")
	return cmd
}
