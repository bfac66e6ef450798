package cli

import (
	"errors"

	"github.com/fieldforce/dispatchopt/internal/domain"
)

// ExitCode maps a command's returned error to spec.md §6's CLI contract:
// 0 normal, 1 fatal-config, 2 ingest-failure, 3 training-failure-when-strict
// (or a post-commit hard-constraint violation), 4 aborted-partial.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrFatalConfig):
		return 1
	case errors.Is(err, domain.ErrIngestMissingColumn), errors.Is(err, domain.ErrIngestUnparseableDate), errors.Is(err, domain.ErrIngestInvalidRow):
		return 2
	case errors.Is(err, domain.ErrTrainingStrictAbort), errors.Is(err, domain.ErrHardConstraintViolation):
		return 3
	case errors.Is(err, domain.ErrRunAborted):
		return 4
	default:
		return 1
	}
}

// ErrPartialRun wraps domain.ErrRunAborted so callers that already have a
// partial result can still surface it through the normal error path.
type ErrPartialRun struct {
	RunID string
}

func (e *ErrPartialRun) Error() string {
	return "run " + e.RunID + ": aborted, partial result emitted"
}

func (e *ErrPartialRun) Unwrap() error {
	return domain.ErrRunAborted
}
