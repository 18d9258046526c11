package grading

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// errors
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrGradeNotFound      = errors.New("grade not found")
	ErrSubmissionNotFound = errors.New("no submission uploaded")
	ErrStudentNotEnrolled = errors.New("student not enrolled for this assignment")

	errScoreOutOfRange = errors.New("points earned must be between 0 and the assignment max points")
	errMissingScore    = errors.New("grading result carries no score")
)

// TransientError marks an infrastructure failure that is likely to succeed
// on retry (connection-level failures, ledger 5xx).
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

func NewTransientError(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// AIServiceError reports a non-2xx response from the AI grading service.
// The whole sub-batch is failed; no partial results are extractable.
type AIServiceError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *AIServiceError) Error() string {
	return fmt.Sprintf("grading service %s returned status %d", e.Endpoint, e.Status)
}

// ReconciliationError reports an AI response that cannot be mapped back onto
// the originating students. Fatal for the affected sub-batch.
type ReconciliationError struct {
	Want int // dispatched entries
	Got  int // returned results
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("cannot reconcile grading results: sent %d submissions, got %d results", e.Want, e.Got)
}

// transientMarkers cover connection-level failures seen against the grade
// ledger under load.
var transientMarkers = []string{
	"connection reset",
	"server closed",
	"broken pipe",
	"connection refused",
	"timeout",
	"timed out",
	"EOF",
}

// IsTransient classifies err as retryable infrastructure failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var terr *TransientError
	if errors.As(err, &terr) {
		return true
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}

	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
