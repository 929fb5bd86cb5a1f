package llm

import (
	"errors"
	"fmt"
)

// ErrTransport matches any TransportError via errors.Is.
var ErrTransport = errors.New("llm: transport failure")

// TransportError wraps a network or service failure from the provider.
type TransportError struct {
	Op    Op
	Model string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("llm %s call to %s failed: %v", e.Op, e.Model, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is marked as not worth retrying.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}
