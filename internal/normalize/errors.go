package normalize

import "errors"

// ErrMalformedResponse matches any MalformedResponseError via errors.Is.
var ErrMalformedResponse = errors.New("malformed model response")

// MalformedResponseError reports text that did not parse as JSON even after
// fence stripping and delimiter extraction. Raw keeps the original text.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	if e.Err == nil {
		return ErrMalformedResponse.Error()
	}
	return ErrMalformedResponse.Error() + ": " + e.Err.Error()
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }
