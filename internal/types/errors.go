package types

import (
	"fmt"
	"strings"
)

// ResolutionError is the fatal error type of a resolution run. Path is only
// set for cyclic dependencies and lists the locations from the first
// occurrence of the repeated location to its repetition.
type ResolutionError struct {
	Kind     ErrorKind
	Location string
	Path     []string
	Msg      string
	Err      error
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Location != "" {
		fmt.Fprintf(&b, " (location=%s)", e.Location)
	}
	if len(e.Path) > 0 {
		fmt.Fprintf(&b, " (path=%s)", strings.Join(e.Path, " -> "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

func NewResolutionError(kind ErrorKind, location string, msg string) *ResolutionError {
	return &ResolutionError{Kind: kind, Location: location, Msg: msg}
}

// WithCause attaches the underlying error.
func (e *ResolutionError) WithCause(err error) *ResolutionError {
	e.Err = err
	return e
}
