package pmagentspec

import (
	"errors"
	"fmt"
)

// Sentinel errors for resolution operations.
// All use prefix "pmagentspec:" for identification. Callers should use errors.Is/errors.As.
var (
	ErrNotFound        = errors.New("pmagentspec: not found")
	ErrUnavailable     = errors.New("pmagentspec: document unavailable from any source")
	ErrReadFailure     = errors.New("pmagentspec: local read failed")
	ErrTransport       = errors.New("pmagentspec: remote fetch failed")
	ErrInvalidDocument = errors.New("pmagentspec: structured document is malformed or empty")
	ErrNoSpecFile      = errors.New("pmagentspec: manifest entry does not define a spec_file")
	ErrInvalidName     = errors.New("pmagentspec: invalid name or path")
)

// LookupError reports a name that is absent from the index or the manifest.
// Use errors.Is(err, ErrNotFound) and errors.As(err, &lookupErr) to inspect.
type LookupError struct {
	Kind string // "spec" or "tool"
	Name string
	Err  error
}

// Error implements error.
func (e *LookupError) Error() string {
	return fmt.Sprintf("pmagentspec: %s %q: %v", e.Kind, e.Name, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/errors.As.
func (e *LookupError) Unwrap() error { return e.Err }

// DocumentError reports a resolved path whose document could not be obtained
// from the remote tier. Status is the HTTP status when the mirror answered.
type DocumentError struct {
	Path   string
	URL    string
	Status int
	Err    error
}

// Error implements error.
func (e *DocumentError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("pmagentspec: document %q (%s): status %d: %v", e.Path, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("pmagentspec: document %q (%s): %v", e.Path, e.URL, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/errors.As.
func (e *DocumentError) Unwrap() error { return e.Err }

// Compile-time checks that the typed errors implement error.
var (
	_ error = (*LookupError)(nil)
	_ error = (*DocumentError)(nil)
)
