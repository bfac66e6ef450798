// Package store persists run results (assignments, diagnostics, warnings)
// to SQLite via modernc.org/sqlite, so `dispatchopt inspect` can read back
// a past run without holding it in process memory.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fieldforce/dispatchopt/internal/domain"
	"github.com/fieldforce/dispatchopt/internal/rundriver"
)

// Store wraps a SQLite-backed run-history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite file at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id           TEXT PRIMARY KEY,
	run_date         TEXT NOT NULL,
	partial          INTEGER NOT NULL,
	policy_mode      TEXT NOT NULL,
	assignment_rate  REAL NOT NULL,
	mean_success     REAL NOT NULL,
	mean_distance_km REAL NOT NULL,
	distance_saved_km REAL NOT NULL,
	warnings_json    TEXT NOT NULL,
	created_at       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS assignments (
	run_id              TEXT NOT NULL,
	dispatch_id         TEXT NOT NULL,
	technician_id       TEXT NOT NULL,
	predicted_success   REAL NOT NULL,
	predicted_duration  REAL NOT NULL,
	distance_km         REAL NOT NULL,
	skill_match_score   REAL NOT NULL,
	workload_ratio_after REAL NOT NULL,
	score               REAL NOT NULL,
	fallback_level      INTEGER NOT NULL,
	warnings            TEXT NOT NULL,
	unassigned_reason   TEXT NOT NULL,
	PRIMARY KEY (run_id, dispatch_id)
);
CREATE INDEX IF NOT EXISTS idx_assignments_run ON assignments(run_id);
`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("store: init schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveResult persists one RunForDate result as a run row plus one
// assignment row per dispatch, inside a single transaction.
func (s *Store) SaveResult(result rundriver.Result) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	warningsJSON, err := json.Marshal(result.Diagnostics.Warnings)
	if err != nil {
		return fmt.Errorf("store: marshal warnings: %w", err)
	}

	_, err = tx.Exec(
		`INSERT OR REPLACE INTO runs (run_id, run_date, partial, policy_mode, assignment_rate, mean_success, mean_distance_km, distance_saved_km, warnings_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		result.Date.Format("2006-01-02"),
		boolToInt(result.Partial),
		result.Diagnostics.PolicyMode,
		result.Diagnostics.Optimized.AssignmentRate,
		result.Diagnostics.Optimized.MeanSuccess,
		result.Diagnostics.Optimized.MeanDistanceKM,
		result.Diagnostics.DistanceSavedKM,
		string(warningsJSON),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("store: insert run: %w", err)
	}

	for _, a := range result.Assignments {
		_, err = tx.Exec(
			`INSERT OR REPLACE INTO assignments (run_id, dispatch_id, technician_id, predicted_success, predicted_duration, distance_km, skill_match_score, workload_ratio_after, score, fallback_level, warnings, unassigned_reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.RunID, a.DispatchID, a.TechnicianID, a.PredictedSuccess, a.PredictedDuration,
			a.DistanceKM, a.SkillMatchScore, a.WorkloadRatioAfter, a.Score, a.FallbackLevel,
			strings.Join(a.Warnings, "; "), a.UnassignedReason,
		)
		if err != nil {
			return fmt.Errorf("store: insert assignment %s: %w", a.DispatchID, err)
		}
	}

	return tx.Commit()
}

// RunSummary is the run-row projection LoadRun returns without pulling
// every assignment row.
type RunSummary struct {
	RunID           string
	Date            string
	Partial         bool
	PolicyMode      string
	AssignmentRate  float64
	MeanSuccess     float64
	MeanDistanceKM  float64
	DistanceSavedKM float64
	Warnings        []string
}

// LoadRun fetches one run's summary by ID.
func (s *Store) LoadRun(runID string) (RunSummary, error) {
	row := s.db.QueryRow(
		`SELECT run_id, run_date, partial, policy_mode, assignment_rate, mean_success, mean_distance_km, distance_saved_km, warnings_json
		 FROM runs WHERE run_id = ?`, runID)

	var out RunSummary
	var partial int
	var warningsJSON string
	if err := row.Scan(&out.RunID, &out.Date, &partial, &out.PolicyMode, &out.AssignmentRate, &out.MeanSuccess, &out.MeanDistanceKM, &out.DistanceSavedKM, &warningsJSON); err != nil {
		if err == sql.ErrNoRows {
			return RunSummary{}, fmt.Errorf("store: run %s: %w", runID, domain.ErrSnapshotNotFound)
		}
		return RunSummary{}, fmt.Errorf("store: load run %s: %w", runID, err)
	}
	out.Partial = partial != 0
	if err := json.Unmarshal([]byte(warningsJSON), &out.Warnings); err != nil {
		return RunSummary{}, fmt.Errorf("store: unmarshal warnings for run %s: %w", runID, err)
	}
	return out, nil
}

// LoadAssignments fetches every assignment row for a run, in dispatch_id
// order.
func (s *Store) LoadAssignments(runID string) ([]domain.Assignment, error) {
	rows, err := s.db.Query(
		`SELECT dispatch_id, technician_id, predicted_success, predicted_duration, distance_km, skill_match_score, workload_ratio_after, score, fallback_level, warnings, unassigned_reason
		 FROM assignments WHERE run_id = ? ORDER BY dispatch_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: load assignments for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		var warnings string
		if err := rows.Scan(&a.DispatchID, &a.TechnicianID, &a.PredictedSuccess, &a.PredictedDuration,
			&a.DistanceKM, &a.SkillMatchScore, &a.WorkloadRatioAfter, &a.Score, &a.FallbackLevel,
			&warnings, &a.UnassignedReason); err != nil {
			return nil, fmt.Errorf("store: scan assignment: %w", err)
		}
		if warnings != "" {
			a.Warnings = strings.Split(warnings, "; ")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LatestRunID returns the most recently created run's ID, or
// domain.ErrSnapshotNotFound if no run has been saved.
func (s *Store) LatestRunID() (string, error) {
	row := s.db.QueryRow(`SELECT run_id FROM runs ORDER BY created_at DESC LIMIT 1`)
	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return "", domain.ErrSnapshotNotFound
		}
		return "", fmt.Errorf("store: latest run: %w", err)
	}
	return id, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
