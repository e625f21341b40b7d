package index

import (
	"context"
	"errors"
	"fmt"

	pmagentspec "github.com/Azure/PMAgent-Spec"
	"github.com/Azure/PMAgent-Spec/internal/doctree"
	"go.uber.org/zap"
)

var errNotSequence = errors.New("index: document is not a list of entries")

// Resolver loads the index on every call; there is no cache.
type Resolver struct {
	locator *pmagentspec.Locator
	fetcher *pmagentspec.Fetcher
	logger  *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger. A nil logger leaves the no-op default.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l.Named("index")
		}
	}
}

// New returns a Resolver. Panics if locator or fetcher is nil.
func New(locator *pmagentspec.Locator, fetcher *pmagentspec.Fetcher, opts ...Option) *Resolver {
	if locator == nil || fetcher == nil {
		panic("index: locator and fetcher must not be nil")
	}
	r := &Resolver{locator: locator, fetcher: fetcher, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List returns the index entries in document order.
// A candidate that is empty or not a list of entries is skipped in favour of
// the next one. Returns an error wrapping ErrUnavailable when no candidate
// yields a usable index.
func (r *Resolver) List(ctx context.Context) ([]pmagentspec.IndexEntry, error) {
	locs, err := r.locator.Locate(pmagentspec.ClassIndex, "")
	if err != nil {
		return nil, err
	}
	var entries []pmagentspec.IndexEntry
	accept := func(data []byte) error {
		parsed, perr := parse(data)
		if perr != nil {
			return perr
		}
		entries = parsed
		return nil
	}
	doc, err := r.fetcher.Fetch(ctx, locs, pmagentspec.WithAccept(accept))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: index: %w", pmagentspec.ErrUnavailable, err)
	}
	r.logger.Debug("index loaded",
		zap.Stringer("tier", doc.Source.Tier),
		zap.Int("entries", len(entries)))
	return entries, nil
}

// Find returns the first entry whose name equals name. Entries without a
// name never match.
// Returns *pmagentspec.LookupError wrapping ErrNotFound when absent.
func (r *Resolver) Find(ctx context.Context, name string) (pmagentspec.IndexEntry, error) {
	entries, err := r.List(ctx)
	if err != nil {
		return pmagentspec.IndexEntry{}, err
	}
	for _, e := range entries {
		if e.Name != "" && e.Name == name {
			return e, nil
		}
	}
	return pmagentspec.IndexEntry{}, &pmagentspec.LookupError{Kind: "spec", Name: name, Err: pmagentspec.ErrNotFound}
}

// parse accepts a non-empty sequence. Items that are not mappings are kept as
// blank entries so positions match the document.
func parse(data []byte) ([]pmagentspec.IndexEntry, error) {
	root, err := doctree.Parse(data)
	if err != nil {
		return nil, err
	}
	if root.Empty() {
		return nil, fmt.Errorf("%w: empty index", pmagentspec.ErrInvalidDocument)
	}
	items, ok := root.Items()
	if !ok {
		return nil, fmt.Errorf("%w: %w (got %s)", pmagentspec.ErrInvalidDocument, errNotSequence, root.Kind())
	}
	entries := make([]pmagentspec.IndexEntry, 0, len(items))
	for _, it := range items {
		var e pmagentspec.IndexEntry
		e.Name, _ = it.FieldStr("name")
		e.File, _ = it.FieldStr("file")
		e.Description, _ = it.FieldStr("description")
		entries = append(entries, e)
	}
	return entries, nil
}
