package bias

import "errors"

// The failure taxonomy callers can test with errors.Is. Per-file read
// failures (see pkg/fits) are recoverable and recorded in the outcome;
// per-group failures abort only their group; only ErrEmptyInput and
// ErrNoGroupsSurvived fail a run outright.
var(
	ErrDimensionMismatch = errors.New("frame dimensions do not match")
	ErrWriteConflict     = errors.New("output path already produced by an earlier group in this run")
	ErrIOFailure         = errors.New("filesystem failure")
	ErrEmptyInput        = errors.New("no valid input files")
	ErrNoGroupsSurvived  = errors.New("no groups survived grouping")
)
