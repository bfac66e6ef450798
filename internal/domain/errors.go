package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. Grouped per the
// error taxonomy of spec.md §7.

var (
	// Config errors — fatal, exit 1, rejected before ingest is attempted.
	ErrFatalConfig = errors.New("config: invalid configuration")

	// Ingest errors — fatal, exit 2, no assignments written.
	ErrIngestMissingColumn   = errors.New("ingest: required column missing")
	ErrIngestUnparseableDate = errors.New("ingest: unparseable date")
	ErrIngestInvalidRow      = errors.New("ingest: row violates invariant")

	// Training errors — degrade, not fatal unless running in strict mode.
	ErrTrainingInsufficientData = errors.New("training: insufficient history")
	ErrTrainingNumericFailure   = errors.New("training: numeric optimization failed")
	ErrTrainingStrictAbort      = errors.New("training: degraded model not permitted in strict mode")

	// Candidate/filtering — not errors, but a typed reason a caller can branch on.
	ErrNoCandidateAtL6 = errors.New("assign: no candidate available at fallback level 6")

	// Post-commit invariant violation — fatal bug, exit 3, dump state.
	ErrHardConstraintViolation = errors.New("assign: hard constraint violated after commit")

	// Cancellation — graceful partial result, exit 4.
	ErrRunAborted = errors.New("run: aborted by cancellation signal")

	// Store transactional errors.
	ErrTechnicianNotFound  = errors.New("store: technician not found")
	ErrDispatchNotAssigned = errors.New("store: dispatch has no active assignment")
	ErrCapacityExceeded    = errors.New("store: assignment would exceed capacity bound")

	// Model snapshot persistence (internal/infra/modelstore).
	ErrSnapshotNotFound  = errors.New("modelstore: snapshot not found")
	ErrSnapshotCorrupted = errors.New("modelstore: snapshot blob missing or unreadable")
)
