package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/fieldforce/dispatchopt/internal/api"
	"github.com/fieldforce/dispatchopt/internal/config"
	"github.com/fieldforce/dispatchopt/internal/ingest"
	"github.com/fieldforce/dispatchopt/internal/observability"
	"github.com/fieldforce/dispatchopt/internal/rundriver"
)

// newServeCommand trains once on startup, assigns one date's dispatches,
// and then serves the result over HTTP indefinitely: /healthz, /metrics
// (Prometheus), and /runs/latest (JSON). It takes the same ingest flags
// as "run" because there is otherwise nothing for the introspection
// routes to report.
func newServeCommand() *cobra.Command {
	var dispatchesPath, techniciansPath, calendarPath, historyPath, datePath, addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Assign one date's dispatches, then serve health/metrics/last-run over HTTP",
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
			if addr == "" {
				addr = cfg.Server.ListenAddr
			}

			snap, err := ingest.Load(dispatchesPath, techniciansPath, calendarPath, historyPath)
			if err != nil {
				return err
			}
			date, err := time.Parse("2006-01-02", datePath)
			if err != nil {
				return fmt.Errorf("serve: --date must be YYYY-MM-DD: %w", err)
			}

			driver := rundriver.New(cfg.Options())
			if err := driver.Train(snap.History, snap.Technicians); err != nil {
				return err
			}

			byDate := rundriver.GroupByDate(snap.Dispatches)
			calendar := ingest.CalendarByTechnician(snap.Calendar, date)
			result := driver.RunForDate(date, byDate[date], snap.Technicians, calendar, nil)

			srv := api.New(cfg.Server.MetricsEnabled)
			srv.SetLatest(result)

			if cfg.Server.MetricsEnabled {
				recorder := observability.New(prometheus.DefaultRegisterer)
				recorder.Observe(result)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", addr)
			return http.ListenAndServe(addr, srv)
		},
	}

	cmd.Flags().StringVar(&dispatchesPath, "dispatches", "", "path to the dispatches JSON file")
	cmd.Flags().StringVar(&techniciansPath, "technicians", "", "path to the technicians JSON file")
	cmd.Flags().StringVar(&calendarPath, "calendar", "", "path to the calendar JSON file")
	cmd.Flags().StringVar(&historyPath, "history", "", "path to the historical-dispatches JSON file")
	cmd.Flags().StringVar(&datePath, "date", time.Now().Format("2006-01-02"), "scheduling date to assign, YYYY-MM-DD")
	cmd.Flags().StringVar(&addr, "addr", "", "override the configured listen address")
	cmd.MarkFlagRequired("dispatches")
	cmd.MarkFlagRequired("technicians")
	cmd.MarkFlagRequired("calendar")

	return cmd
}
