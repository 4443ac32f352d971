package main

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

func newRootCommand() *cobra.Command {
	var configFlag string

	cc := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "plenum",
		Short:         "Council session transcription pipeline",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := cc.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newDiscoverCommand(cc))
	rootCmd.AddCommand(newProcessCommand(cc))
	rootCmd.AddCommand(newRunCommand(cc))
	rootCmd.AddCommand(newStatusCommand(cc))
	rootCmd.AddCommand(newRetryCommand(cc))
	rootCmd.AddCommand(newConfigCommand(cc))

	return rootCmd
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
