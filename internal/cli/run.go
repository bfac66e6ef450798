package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldforce/dispatchopt/internal/config"
	"github.com/fieldforce/dispatchopt/internal/ingest"
	"github.com/fieldforce/dispatchopt/internal/report"
	"github.com/fieldforce/dispatchopt/internal/rundriver"
	"github.com/fieldforce/dispatchopt/internal/store"
)

func newRunCommand() *cobra.Command {
	var dispatchesPath, techniciansPath, calendarPath, historyPath, datePath, dbPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest one day's inputs and emit an assignment table with diagnostics",
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

			snap, err := ingest.Load(dispatchesPath, techniciansPath, calendarPath, historyPath)
			if err != nil {
				return err
			}

			date, err := time.Parse("2006-01-02", datePath)
			if err != nil {
				return fmt.Errorf("run: --date must be YYYY-MM-DD: %w", err)
			}

			driver := rundriver.New(cfg.Options())
			if err := driver.Train(snap.History, snap.Technicians); err != nil {
				return err
			}

			byDate := rundriver.GroupByDate(snap.Dispatches)
			dayDispatches := byDate[date]
			calendar := ingest.CalendarByTechnician(snap.Calendar, date)

			abort := make(chan struct{})
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case <-sigCh:
					close(abort)
				case <-cmd.Context().Done():
				}
			}()

			result := driver.RunForDate(date, dayDispatches, snap.Technicians, calendar, abort)

			fmt.Fprint(cmd.OutOrStdout(), report.Render(result))

			if cfg.Storage.SQLitePath != "" {
				st, err := store.Open(cfg.Storage.SQLitePath)
				if err != nil {
					return err
				}
				defer st.Close()
				if err := st.SaveResult(result); err != nil {
					return err
				}
			}

			if result.Partial {
				return &ErrPartialRun{RunID: result.RunID}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dispatchesPath, "dispatches", "", "path to the dispatches JSON file")
	cmd.Flags().StringVar(&techniciansPath, "technicians", "", "path to the technicians JSON file")
	cmd.Flags().StringVar(&calendarPath, "calendar", "", "path to the calendar JSON file")
	cmd.Flags().StringVar(&historyPath, "history", "", "path to the historical-dispatches JSON file")
	cmd.Flags().StringVar(&datePath, "date", time.Now().Format("2006-01-02"), "scheduling date to assign, YYYY-MM-DD")
	cmd.Flags().StringVar(&dbPath, "db", "", "override the configured SQLite run-history path")
	cmd.MarkFlagRequired("dispatches")
	cmd.MarkFlagRequired("technicians")
	cmd.MarkFlagRequired("calendar")

	return cmd
}
