// Package apperr holds the sentinel errors shared across the answer pipeline.
// Callers wrap them with fmt.Errorf("...: %w", err) and test with errors.Is.
package apperr

import "errors"

var (
	// ErrTransientProvider marks a model call failure worth retrying.
	ErrTransientProvider = errors.New("transient provider error")
	// ErrPermanentProvider marks a model call failure that retrying will not fix,
	// including transient failures that exhausted their attempts.
	ErrPermanentProvider = errors.New("permanent provider error")
	// ErrMalformedResponse means no structured value could be recovered from model text.
	ErrMalformedResponse = errors.New("malformed model response")
	ErrEmptyResultSet    = errors.New("no rows matched the filter")
	ErrRenderFailure     = errors.New("chart render failure")
	ErrInvalidQuestion   = errors.New("question is not answerable")

	ErrPlanningFailed = errors.New("query planning failed")
	ErrAnalysisFailed = errors.New("analysis failed")
	// ErrPartial marks an answer built from a degraded path.
	ErrPartial = errors.New("partial answer")
)
