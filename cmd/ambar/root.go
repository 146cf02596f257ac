package main

import (
	"github.com/spf13/cobra"
)

// configPath is the --config flag, shared by subcommands.
var configPath string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ambar",
		Short:         "Ambar is a lightweight document database over blob storage",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")
	root.AddCommand(newServeCommand())
	root.AddCommand(newVersionCommand())
	return root
}
