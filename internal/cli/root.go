// Package cli implements the dispatchopt command-line surface (cobra),
// wiring internal/config, internal/ingest, internal/rundriver,
// internal/store, internal/observability, and internal/api together into
// the three commands spec.md §6 calls for: run, inspect, serve.
package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// NewRootCommand builds the dispatchopt root command with every
// subcommand attached.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "dispatchopt",
		Short:         "Field-service dispatch optimizer",
		Long:          "dispatchopt assigns pending customer appointments to technicians by predicted success, workload balance, travel distance, and schedule overrun risk.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "path to a TOML configuration file (defaults to the reference configuration)")

	root.AddCommand(newRunCommand())
	root.AddCommand(newInspectCommand())
	root.AddCommand(newServeCommand())
	root.AddCommand(newVersionCommand())

	return root
}
