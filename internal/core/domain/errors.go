package domain

import (
	"errors"
	"fmt"
)

var (
	ErrJobNotFound  = errors.New("generation job not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTemporary    = errors.New("temporary failure")
	ErrUpstream     = errors.New("invalid upstream response")

	ErrEmptyMesh      = errors.New("mesh has no vertices")
	ErrMeshOutOfRange = errors.New("mesh extent exceeds numeric range")

	ErrSubmission     = errors.New("task submission failed")
	ErrRemoteFailure  = errors.New("remote task failed")
	ErrTimeout        = errors.New("task polling timed out")
	ErrCancelled      = errors.New("task polling cancelled")
	ErrTransientCheck = errors.New("task status check failed")

	// ErrInterrupted marks a job left unfinished by worker shutdown. The job
	// keeps its remote task and should be queued again.
	ErrInterrupted = errors.New("job interrupted")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// PollError is the terminal error of a poll run. Kind is one of ErrSubmission,
// ErrRemoteFailure, ErrTimeout or ErrCancelled.
type PollError struct {
	Kind     error
	TaskID   string
	Attempts int
	Reason   string
	Err      error
}

func (e *PollError) Error() string {
	if e == nil {
		return "poll error"
	}
	msg := e.Kind.Error()
	if e.TaskID != "" {
		msg += fmt.Sprintf(" (task=%s attempts=%d)", e.TaskID, e.Attempts)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PollError) Unwrap() []error {
	out := []error{e.Kind}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// DescribeFailure turns a terminal error into a message for end users.
// Timeouts and remote failures get different wording because the remedy differs.
func DescribeFailure(err error) string {
	switch {
	case err == nil:
		return ""
	case IsKind(err, ErrEmptyMesh):
		return "The uploaded file contains no vertices. Check that it is a valid OBJ mesh."
	case IsKind(err, ErrMeshOutOfRange):
		return "The mesh is too large to measure. Check the coordinate units of the OBJ file."
	case IsKind(err, ErrSubmission):
		return "The generation request was rejected before it started. Check the provider settings and try again."
	case IsKind(err, ErrRemoteFailure):
		var pollErr *PollError
		if errors.As(err, &pollErr) && pollErr.Reason != "" {
			return "The provider could not generate the model (" + pollErr.Reason + "). Adjust the prompt or input and try again."
		}
		return "The provider could not generate the model. Adjust the prompt or input and try again."
	case IsKind(err, ErrTimeout):
		return "Generation is taking longer than expected. Try again later."
	case IsKind(err, ErrCancelled):
		return "Generation was cancelled."
	case IsKind(err, ErrInvalidInput):
		return "The request is invalid: " + err.Error()
	default:
		return "Unexpected error: " + err.Error()
	}
}
