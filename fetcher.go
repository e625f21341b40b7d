package pmagentspec

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LocalReader reads a local candidate by filesystem path.
// A missing file must be reported with an error matching fs.ErrNotExist;
// anything else is treated as a read failure and logged.
type LocalReader interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
}

// RemoteReader retrieves a remote candidate by absolute URL.
// Errors carrying an HTTP status should implement HTTPStatus() int so the
// Fetcher can tell a 404 apart from other failures.
type RemoteReader interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// Outcome labels the result of one candidate attempt.
type Outcome string

// Candidate outcomes reported to an Observer.
const (
	OutcomeHit      Outcome = "hit"
	OutcomeMiss     Outcome = "miss"
	OutcomeRejected Outcome = "rejected"
	OutcomeError    Outcome = "error"
)

// Observer receives one call per candidate attempt.
type Observer interface {
	ObserveFetch(class Class, tier Tier, outcome Outcome, d time.Duration)
}

// Document is resolved text plus the candidate that produced it.
type Document struct {
	Text   string
	Source Location
}

// Fetcher tries candidate locations in order and returns the first content
// that loads. It holds no mutable state and is safe for concurrent use.
type Fetcher struct {
	local    LocalReader
	remote   RemoteReader
	logger   *zap.Logger
	observer Observer
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithLogger sets the logger. A nil logger leaves the no-op default.
func WithLogger(l *zap.Logger) FetcherOption {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l.Named("fetcher")
		}
	}
}

// WithObserver sets the observer notified of every candidate attempt.
func WithObserver(o Observer) FetcherOption {
	return func(f *Fetcher) { f.observer = o }
}

// NewFetcher creates a Fetcher over the two storage tiers.
// Panics if local or remote is nil.
func NewFetcher(local LocalReader, remote RemoteReader, opts ...FetcherOption) *Fetcher {
	if local == nil || remote == nil {
		panic("pmagentspec: LocalReader and RemoteReader must not be nil")
	}
	f := &Fetcher{
		local:  local,
		remote: remote,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type fetchOptions struct {
	accept func([]byte) error
}

// FetchOption configures a single Fetch call.
type FetchOption func(*fetchOptions)

// WithAccept installs a content check. A candidate whose content fails the
// check is treated as a miss and the next candidate is tried.
func WithAccept(fn func([]byte) error) FetchOption {
	return func(o *fetchOptions) { o.accept = fn }
}

// Fetch tries candidates strictly in order, one attempt each.
//
// Local: success returns at once; a missing file or any read error moves on.
// Remote: 200 succeeds; 404 moves on (remote candidates are usually last, so
// the caller sees a *DocumentError wrapping ErrNotFound); any other status or
// network error stops with a *DocumentError wrapping ErrTransport.
// When every candidate misses, the error of the last attempt is returned.
func (f *Fetcher) Fetch(ctx context.Context, candidates []Location, opts ...FetchOption) (Document, error) {
	var o fetchOptions
	for _, opt := range opts {
		opt(&o)
	}
	if len(candidates) == 0 {
		return Document{}, fmt.Errorf("%w: no candidate locations", ErrNotFound)
	}
	var lastErr error
	for _, loc := range candidates {
		if err := ctx.Err(); err != nil {
			return Document{}, err
		}
		start := time.Now()
		data, err := f.read(ctx, loc)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Document{}, ctxErr
			}
			var stop bool
			lastErr, stop = f.classify(loc, err, time.Since(start))
			if stop {
				return Document{}, lastErr
			}
			continue
		}
		if o.accept != nil {
			if aerr := o.accept(data); aerr != nil {
				f.observe(loc, OutcomeRejected, time.Since(start))
				f.logger.Debug("candidate rejected",
					zap.Stringer("class", loc.Class),
					zap.Stringer("tier", loc.Tier),
					zap.String("target", loc.Target),
					zap.Error(aerr))
				lastErr = fmt.Errorf("%w: %s: %w", ErrInvalidDocument, loc.Target, aerr)
				continue
			}
		}
		f.observe(loc, OutcomeHit, time.Since(start))
		f.logger.Debug("candidate resolved",
			zap.Stringer("class", loc.Class),
			zap.Stringer("tier", loc.Tier),
			zap.String("target", loc.Target))
		return Document{Text: string(data), Source: loc}, nil
	}
	if lastErr == nil {
		lastErr = ErrNotFound
	}
	return Document{}, lastErr
}

func (f *Fetcher) read(ctx context.Context, loc Location) ([]byte, error) {
	switch loc.Tier {
	case TierLocal:
		return f.local.ReadFile(ctx, loc.Target)
	case TierRemote:
		return f.remote.Get(ctx, loc.Target)
	default:
		return nil, fmt.Errorf("pmagentspec: unknown tier %d for %q", loc.Tier, loc.Target)
	}
}

// classify turns a failed attempt into the error remembered for the chain and
// reports whether the chain must stop.
func (f *Fetcher) classify(loc Location, err error, d time.Duration) (error, bool) {
	if loc.Tier == TierLocal {
		if errors.Is(err, fs.ErrNotExist) {
			f.observe(loc, OutcomeMiss, d)
			return fmt.Errorf("%w: %s", ErrNotFound, loc.Target), false
		}
		f.observe(loc, OutcomeError, d)
		f.logger.Warn("local read failed, falling through",
			zap.Stringer("class", loc.Class),
			zap.String("path", loc.Target),
			zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrReadFailure, loc.Target, err), false
	}

	status := statusOf(err)
	if status == http.StatusNotFound {
		f.observe(loc, OutcomeMiss, d)
		return &DocumentError{
			Path:   loc.Path,
			URL:    loc.Target,
			Status: status,
			Err:    fmt.Errorf("%w: %w", ErrNotFound, err),
		}, false
	}
	f.observe(loc, OutcomeError, d)
	f.logger.Warn("remote fetch failed",
		zap.Stringer("class", loc.Class),
		zap.String("url", loc.Target),
		zap.Int("status", status),
		zap.Error(err))
	return &DocumentError{
		Path:   loc.Path,
		URL:    loc.Target,
		Status: status,
		Err:    fmt.Errorf("%w: %w", ErrTransport, err),
	}, true
}

func (f *Fetcher) observe(loc Location, outcome Outcome, d time.Duration) {
	if f.observer != nil {
		f.observer.ObserveFetch(loc.Class, loc.Tier, outcome, d)
	}
}

func statusOf(err error) int {
	var se interface{ HTTPStatus() int }
	if errors.As(err, &se) {
		return se.HTTPStatus()
	}
	return 0
}
