package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the questionnaire flow. Handlers map these onto HTTP
// status codes; the catalog load failure is the only one that halts the
// entire flow.
var (
	// ErrCatalogLoad means the question catalog could not be fetched or is
	// empty. Fatal to starting or continuing an assessment.
	ErrCatalogLoad = errors.New("question catalog could not be loaded")

	// ErrContextLoad means a context-prompt fetch failed or timed out.
	// Recovered via the error status and a user-triggered retry.
	ErrContextLoad = errors.New("context prompt fetch failed")

	// ErrSubmit means an answer upsert failed at flow-advance time. The
	// flow does not advance; the user may retry.
	ErrSubmit = errors.New("answer could not be saved")

	// ErrSessionNotFound means no active flow exists for the session ID.
	ErrSessionNotFound = errors.New("assessment session not found")

	// ErrSessionCompleted means an operation was attempted on a session
	// that has already been completed.
	ErrSessionCompleted = errors.New("assessment session already completed")

	// ErrRebranchPending means a flow mutation was attempted while a
	// re-branch confirmation is outstanding.
	ErrRebranchPending = errors.New("a re-branch confirmation is pending")

	// ErrNotAtFlowEnd means Finish was called while the flow has not
	// reached a terminal edge.
	ErrNotAtFlowEnd = errors.New("assessment flow has not reached its end")
)

// ValidationError reports user input that failed pre-submit checks. It is
// recovered locally, shown inline, and never persisted.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for fields: %s", strings.Join(e.Fields, ", "))
}

// AsValidationError unwraps a *ValidationError from err, if present.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
