// Package remotesource provides the remote tier of the resolution chain: a
// plain HTTP GET against the repository mirror. A 404 is reported as
// ErrNotFound so the caller can tell "missing" apart from transport failures.
// There is no authentication, retry or caching.
package remotesource
