// Package ingest loads the four input tables spec.md §6 describes
// (dispatches, technicians, calendar, history) from JSON files into the
// typed in-memory records internal/domain defines. Ingest itself is an
// external collaborator per spec.md §1 ("CSV/database ingestion of raw
// tables" is explicitly out of scope) — this is the thinnest possible
// boundary loader to get a runnable CLI, not a general ETL layer, so it
// uses encoding/json rather than reaching for a third-party parser: no
// pack example ships a typed-row ingestion library, and the engine's
// contract only cares that inputs arrive as the structs below, not how.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fieldforce/dispatchopt/internal/domain"
)

// Snapshot is everything one run needs: the pending dispatches, the
// technician pool, today's calendar, and training history.
type Snapshot struct {
	Dispatches  []domain.Dispatch
	Technicians []domain.Technician
	Calendar    []domain.CalendarEntry
	History     []domain.HistoricalDispatch
}

// Load reads the four JSON files and validates every row, per spec.md
// §7's ingest error class (fatal, exit 2, wraps domain.ErrIngest*).
func Load(dispatchesPath, techniciansPath, calendarPath, historyPath string) (Snapshot, error) {
	var snap Snapshot

	if err := decodeFile(dispatchesPath, &snap.Dispatches); err != nil {
		return Snapshot{}, err
	}
	for _, d := range snap.Dispatches {
		if err := d.Validate(); err != nil {
			return Snapshot{}, err
		}
	}

	if err := decodeFile(techniciansPath, &snap.Technicians); err != nil {
		return Snapshot{}, err
	}
	for _, t := range snap.Technicians {
		if t.TechnicianID == "" {
			return Snapshot{}, fmt.Errorf("%w: technician row missing technician_id", domain.ErrIngestMissingColumn)
		}
		if t.WorkloadCapacity <= 0 {
			return Snapshot{}, fmt.Errorf("%w: technician %s has non-positive workload_capacity", domain.ErrIngestInvalidRow, t.TechnicianID)
		}
	}

	if err := decodeFile(calendarPath, &snap.Calendar); err != nil {
		return Snapshot{}, err
	}
	for _, c := range snap.Calendar {
		if err := c.Validate(); err != nil {
			return Snapshot{}, err
		}
	}

	if historyPath != "" {
		if err := decodeFile(historyPath, &snap.History); err != nil {
			return Snapshot{}, err
		}
	}

	return snap, nil
}

func decodeFile(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("ingest: open %s: %w", path, err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrIngestUnparseableDate, path, err)
	}
	return nil
}

// CalendarByTechnician indexes a date's calendar entries by technician_id,
// the shape rundriver.RunForDate expects.
func CalendarByTechnician(entries []domain.CalendarEntry, date time.Time) map[string]domain.CalendarEntry {
	out := make(map[string]domain.CalendarEntry)
	for _, c := range entries {
		if c.Date.Equal(date) {
			out[c.TechnicianID] = c
		}
	}
	return out
}
