package services

import (
	"errors"
	"fmt"
)

// Collaborator failure sentinels. Every turn-processing failure wraps
// one of these; the orchestrator converts them into the degraded reply
// at its boundary, so no error here ever reaches an end user.
var (
	// ErrStoreUnavailable - the user store could not be reached.
	ErrStoreUnavailable = errors.New("user store unavailable")

	// ErrEngineUnavailable - the dialog engine could not be reached
	// (transport error or timeout).
	ErrEngineUnavailable = errors.New("dialog engine unavailable")

	// ErrLogUnavailable - the conversation log could not be reached.
	ErrLogUnavailable = errors.New("conversation log unavailable")

	// ErrSessionNotFound - a dialog turn referenced an unknown
	// conversation session.
	ErrSessionNotFound = errors.New("conversation session not found")

	// ErrEnrichmentUnavailable - the venue search collaborator failed.
	ErrEnrichmentUnavailable = errors.New("venue search unavailable")
)

// EngineError is an upstream-reported failure from the dialog engine
// (non-2xx response). It carries the upstream payload for operators.
type EngineError struct {
	StatusCode int
	Body       string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("dialog engine returned status %d: %s", e.StatusCode, e.Body)
}
