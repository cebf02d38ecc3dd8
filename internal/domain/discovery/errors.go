package discovery

import "errors"

var (
	// ErrNotFound indicates an unknown service or report id.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyAnalyzing is returned when analyze is invoked during a run.
	ErrAlreadyAnalyzing = errors.New("analysis already in progress")
	// ErrEmptyMessage rejects blank chat input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrPersistenceDisabled is returned by report queries when no repository is configured.
	ErrPersistenceDisabled = errors.New("report persistence is not configured")
)
