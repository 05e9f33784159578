package ai

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyResponse means the model answered with nothing usable.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrMalformed means the answer is not JSON or violates the declared schema.
	ErrMalformed = errors.New("response does not match schema")
)

// ResolutionError is a failed model resolution: the call failed, timed out,
// came back empty, or violated its schema. It is the only failure the end
// user is shown.
type ResolutionError struct {
	Op  string // navigation, summary, chat, repurpose
	Err error
}

// NewResolutionError wraps err. A nil err yields a nil error.
func NewResolutionError(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *ResolutionError
	if errors.As(err, &re) {
		return err
	}
	return &ResolutionError{Op: op, Err: err}
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// UserMessage is the plain message shown to the user.
func (e *ResolutionError) UserMessage() string {
	switch {
	case errors.Is(e.Err, context.DeadlineExceeded):
		return "The assistant took too long to answer. Please try again."
	case errors.Is(e.Err, ErrEmptyResponse):
		return "The assistant could not find a way to do that on this page."
	case errors.Is(e.Err, ErrMalformed):
		return "The assistant returned an answer that could not be understood. Please try again."
	default:
		return "The assistant is unavailable right now. Please try again."
	}
}

// IsResolution reports whether err is a ResolutionError.
func IsResolution(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}
