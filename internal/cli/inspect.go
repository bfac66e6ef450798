package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldforce/dispatchopt/internal/config"
	"github.com/fieldforce/dispatchopt/internal/store"
)

func newInspectCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "inspect [run-id]",
		Short: "Print a previously persisted run's diagnostics (defaults to the most recent run)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg := config.DefaultConfig()
			if cfgPath != "" {
				loaded, err := config.Load(cfgPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if dbPath != "" {
				cfg.Storage.SQLitePath = dbPath
			}

			st, err := store.Open(cfg.Storage.SQLitePath)
			if err != nil {
				return err
			}
			defer st.Close()

			runID := ""
			if len(args) == 1 {
				runID = args[0]
			} else {
				runID, err = st.LatestRunID()
				if err != nil {
					return err
				}
			}

			summary, err := st.LoadRun(runID)
			if err != nil {
				return err
			}
			assignments, err := st.LoadAssignments(runID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s — %s (policy mode: %s)\n", summary.RunID, summary.Date, summary.PolicyMode)
			if summary.Partial {
				fmt.Fprintln(out, "WARNING: this run was aborted; results are partial")
			}
			fmt.Fprintf(out, "assignment rate: %.1f%%\n", summary.AssignmentRate*100)
			fmt.Fprintf(out, "mean success: %.3f\n", summary.MeanSuccess)
			fmt.Fprintf(out, "mean distance: %.2f km\n", summary.MeanDistanceKM)
			fmt.Fprintf(out, "distance saved vs baseline: %.2f km\n", summary.DistanceSavedKM)
			fmt.Fprintf(out, "assignment rows: %d\n", len(assignments))
			for _, w := range summary.Warnings {
				fmt.Fprintf(out, "  warning: %s\n", w)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "override the configured SQLite run-history path")
	return cmd
}
