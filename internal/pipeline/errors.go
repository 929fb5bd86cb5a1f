package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"archigen/internal/llm"
	"archigen/internal/normalize"
)

var (
	// ErrNoDataReturned means the analysis model replied with an empty body.
	ErrNoDataReturned = errors.New("no data received from analysis model")
	// ErrNoImageReturned means the image model replied without inline image data.
	ErrNoImageReturned = errors.New("the AI model returned text but no image")
	// ErrInProgress rejects a start while a run is still active.
	ErrInProgress = errors.New("pipeline: a generation is already in progress")
	// ErrIllegalTransition is returned for an event the current state does not accept.
	ErrIllegalTransition = errors.New("pipeline: illegal state transition")
	// ErrReset is returned by a run that was discarded by Reset.
	ErrReset = errors.New("pipeline: run was reset")
)

// GenericErrorMessage is shown when a failure carries no message of its own.
const GenericErrorMessage = "An unexpected error occurred while generating the plan."

// StageTimeoutError reports that a stage exceeded its deadline.
type StageTimeoutError struct {
	Stage   string
	Timeout time.Duration
}

func (e *StageTimeoutError) Error() string {
	return fmt.Sprintf("%s stage timed out after %s", e.Stage, e.Timeout)
}

func (e *StageTimeoutError) Is(target error) bool { return target == context.DeadlineExceeded }

// Code is a stable error class exposed to clients.
type Code string

const (
	CodeMalformedResponse Code = "malformed_response"
	CodeNoData            Code = "no_data"
	CodeNoImage           Code = "no_image"
	CodeTransport         Code = "transport"
	CodeTimeout           Code = "timeout"
	CodeInProgress        Code = "in_progress"
	CodeCanceled          Code = "canceled"
	CodeUnknown           Code = "unknown"
)

// Classify maps err onto a Code. A nil error yields "".
func Classify(err error) Code {
	var timeout *StageTimeoutError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, ErrInProgress):
		return CodeInProgress
	case errors.Is(err, normalize.ErrMalformedResponse):
		return CodeMalformedResponse
	case errors.Is(err, ErrNoDataReturned):
		return CodeNoData
	case errors.Is(err, ErrNoImageReturned):
		return CodeNoImage
	case errors.Is(err, ErrReset), errors.Is(err, context.Canceled):
		return CodeCanceled
	case errors.Is(err, llm.ErrTransport):
		return CodeTransport
	default:
		return CodeUnknown
	}
}

// Message returns the user-facing text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return GenericErrorMessage
}
