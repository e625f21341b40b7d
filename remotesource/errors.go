package remotesource

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for remote fetches.
// Callers should use errors.Is to check.
var (
	// ErrFetchFailed indicates the request could not be completed or returned an unusable response.
	ErrFetchFailed = errors.New("remotesource: fetch failed")
	// ErrHTTPStatus indicates a status other than 200 OK and 404 Not Found.
	ErrHTTPStatus = errors.New("remotesource: unexpected HTTP status")
	// ErrNotFound indicates the mirror answered 404.
	ErrNotFound = errors.New("remotesource: not found")
	// ErrUnsupportedScheme is returned for URLs that are not http or https.
	ErrUnsupportedScheme = errors.New("remotesource: only http and https URLs are supported")
	// ErrBodyTooLarge is returned when the response exceeds the size limit.
	ErrBodyTooLarge = errors.New("remotesource: response body exceeds size limit")
)

// StatusError carries the HTTP status of a failed request.
// It unwraps to ErrNotFound for 404 and to ErrHTTPStatus otherwise.
type StatusError struct {
	Code   int
	Status string
	URL    string
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("remotesource: %s %s", e.Status, e.URL)
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int { return e.Code }

// Unwrap returns ErrNotFound or ErrHTTPStatus depending on Code.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return ErrNotFound
	}
	return ErrHTTPStatus
}

var _ error = (*StatusError)(nil)
