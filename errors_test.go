package pmagentspec

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupError(t *testing.T) {
	t.Parallel()
	err := &LookupError{Kind: "spec", Name: "unknown", Err: ErrNotFound}
	assert.Contains(t, err.Error(), `spec "unknown"`)
	assert.Contains(t, err.Error(), "pmagentspec:")
	require.ErrorIs(t, err, ErrNotFound)

	outer := fmt.Errorf("outer: %w", err)
	var le *LookupError
	require.ErrorAs(t, outer, &le)
	assert.Equal(t, "unknown", le.Name)
	assert.Equal(t, "spec", le.Kind)
}

func TestDocumentError(t *testing.T) {
	t.Parallel()
	err := &DocumentError{Path: "readme.md", URL: "https://example.com/spec/readme.md", Status: 404, Err: ErrNotFound}
	assert.Contains(t, err.Error(), "readme.md")
	assert.Contains(t, err.Error(), "status 404")
	require.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrTransport)

	noStatus := &DocumentError{Path: "a.md", URL: "https://x/a.md", Err: ErrTransport}
	assert.NotContains(t, noStatus.Error(), "status")
	require.ErrorIs(t, noStatus, ErrTransport)
}

func TestSentinelErrors_Is(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"not found", ErrNotFound, ErrNotFound, true},
		{"unavailable", ErrUnavailable, ErrUnavailable, true},
		{"read failure", ErrReadFailure, ErrReadFailure, true},
		{"transport", ErrTransport, ErrTransport, true},
		{"invalid document", ErrInvalidDocument, ErrInvalidDocument, true},
		{"no spec file", ErrNoSpecFile, ErrNoSpecFile, true},
		{"invalid name", ErrInvalidName, ErrInvalidName, true},
		{"wrapped unavailable", fmt.Errorf("%w: %w", ErrUnavailable, ErrInvalidDocument), ErrInvalidDocument, true},
		{"wrong target", ErrNotFound, ErrUnavailable, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}
