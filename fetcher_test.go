package pmagentspec

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeLocal struct {
	mu    sync.Mutex
	files map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeLocal) ReadFile(_ context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if err, ok := f.errs[name]; ok {
		return nil, err
	}
	if s, ok := f.files[name]; ok {
		return []byte(s), nil
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) HTTPStatus() int { return int(e) }

type fakeRemote struct {
	t     *testing.T
	deny  bool
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeRemote) Get(_ context.Context, rawURL string) ([]byte, error) {
	if f.deny {
		f.t.Errorf("remote tier contacted for %s", rawURL)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rawURL)
	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	if s, ok := f.pages[rawURL]; ok {
		return []byte(s), nil
	}
	return nil, statusErr(http.StatusNotFound)
}

type recordedAttempt struct {
	class   Class
	tier    Tier
	outcome Outcome
}

type recordingObserver struct {
	mu       sync.Mutex
	attempts []recordedAttempt
}

func (r *recordingObserver) ObserveFetch(class Class, tier Tier, outcome Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, recordedAttempt{class, tier, outcome})
}

func specCandidates(t *testing.T, name string) []Location {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Root = "/repo"
	locs, err := NewLocator(cfg).Locate(ClassSpecDocument, name)
	require.NoError(t, err)
	return locs
}

func TestFetcher_LocalHitSkipsRemote(t *testing.T) {
	t.Parallel()
	locs := specCandidates(t, "readme.md")
	local := &fakeLocal{files: map[string]string{locs[0].Target: "Intro\n"}}
	remote := &fakeRemote{t: t, deny: true}

	doc, err := NewFetcher(local, remote).Fetch(context.Background(), locs)
	require.NoError(t, err)
	assert.Equal(t, "Intro\n", doc.Text)
	assert.Equal(t, locs[0], doc.Source)
	assert.Empty(t, remote.calls)
}

func TestFetcher_FallsThroughToRemote(t *testing.T) {
	t.Parallel()
	locs := specCandidates(t, "readme.md")
	tests := []struct {
		name     string
		localErr error
	}{
		{"missing", nil},
		{"permission denied", &fs.PathError{Op: "open", Path: locs[0].Target, Err: fs.ErrPermission}},
		{"is a directory", errors.New("read /repo/spec/readme.md: is a directory")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			local := &fakeLocal{}
			if tt.localErr != nil {
				local.errs = map[string]error{locs[0].Target: tt.localErr}
			}
			remote := &fakeRemote{t: t, pages: map[string]string{locs[1].Target: "Remote intro"}}
			doc, err := NewFetcher(local, remote).Fetch(context.Background(), locs)
			require.NoError(t, err)
			assert.Equal(t, "Remote intro", doc.Text)
			assert.Equal(t, TierRemote, doc.Source.Tier)
			assert.Equal(t, []string{locs[0].Target}, local.calls)
		})
	}
}

func TestFetcher_LocalReadFailureIsLogged(t *testing.T) {
	t.Parallel()
	locs := specCandidates(t, "readme.md")
	core, logs := observer.New(zap.WarnLevel)
	local := &fakeLocal{errs: map[string]error{locs[0].Target: fs.ErrPermission}}
	remote := &fakeRemote{t: t, pages: map[string]string{locs[1].Target: "ok"}}

	_, err := NewFetcher(local, remote, WithLogger(zap.New(core))).Fetch(context.Background(), locs)
	require.NoError(t, err)
	entries := logs.FilterMessage("local read failed, falling through").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "fetcher", entries[0].LoggerName)
	assert.Equal(t, locs[0].Target, entries[0].ContextMap()["path"])
}

func TestFetcher_Remote404(t *testing.T) {
	t.Parallel()
	locs := specCandidates(t, "guides/missing.md")
	_, err := NewFetcher(&fakeLocal{}, &fakeRemote{t: t}).Fetch(context.Background(), locs)
	require.Error(t, err)

	var docErr *DocumentError
	require.ErrorAs(t, err, &docErr)
	assert.Equal(t, "guides/missing.md", docErr.Path)
	assert.Equal(t, DefaultBaseURL+"/spec/guides/missing.md", docErr.URL)
	assert.Equal(t, http.StatusNotFound, docErr.Status)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrTransport)
}

func TestFetcher_Remote404ContinuesToNextCandidate(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Root = "/repo"
	locs, err := NewLocator(cfg).Locate(ClassToolSpec, "github_mcp")
	require.NoError(t, err)
	remote := &fakeRemote{t: t, pages: map[string]string{locs[3].Target: "name: github_mcp\n"}}
	local := &fakeLocal{}

	doc, err := NewFetcher(local, remote).Fetch(context.Background(), locs)
	require.NoError(t, err)
	assert.Equal(t, "name: github_mcp\n", doc.Text)
	assert.Equal(t, "github_mcp.yaml", doc.Source.Path)
	assert.Equal(t, []string{locs[2].Target, locs[3].Target}, remote.calls)
	assert.Equal(t, []string{locs[0].Target, locs[1].Target}, local.calls)
}

func TestFetcher_RemoteFailureIsTerminal(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	locs, err := NewLocator(cfg).Locate(ClassToolSpec, "github_mcp")
	require.NoError(t, err)
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"server error", statusErr(http.StatusInternalServerError), http.StatusInternalServerError},
		{"forbidden", statusErr(http.StatusForbidden), http.StatusForbidden},
		{"network", errors.New("dial tcp: connection refused"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			local := &fakeLocal{}
			remote := &fakeRemote{t: t, errs: map[string]error{locs[2].Target: tt.err}}
			_, err := NewFetcher(local, remote).Fetch(context.Background(), locs)
			require.ErrorIs(t, err, ErrTransport)
			assert.NotErrorIs(t, err, ErrNotFound)
			var docErr *DocumentError
			require.ErrorAs(t, err, &docErr)
			assert.Equal(t, tt.wantStatus, docErr.Status)
			assert.Equal(t, []string{locs[0].Target, locs[1].Target}, local.calls)
			assert.Equal(t, []string{locs[2].Target}, remote.calls, "remote .yaml is never tried")
		})
	}
}

func TestFetcher_LocalYAMLBeforeRemote(t *testing.T) {
	t.Parallel()
	locs, err := NewLocator(DefaultConfig()).Locate(ClassToolSpec, "ado")
	require.NoError(t, err)
	local := &fakeLocal{files: map[string]string{locs[1].Target: "name: ado\n"}}
	remote := &fakeRemote{t: t, deny: true}

	doc, err := NewFetcher(local, remote).Fetch(context.Background(), locs)
	require.NoError(t, err)
	assert.Equal(t, "name: ado\n", doc.Text)
	assert.Equal(t, TierLocal, doc.Source.Tier)
	assert.Equal(t, "ado.yaml", doc.Source.Path)
}

func TestFetcher_AcceptRejectionFallsThrough(t *testing.T) {
	t.Parallel()
	locs := specCandidates(t, "index.yml")
	local := &fakeLocal{files: map[string]string{locs[0].Target: ""}}
	remote := &fakeRemote{t: t, pages: map[string]string{locs[1].Target: "- name: readme"}}
	nonEmpty := func(b []byte) error {
		if len(b) == 0 {
			return errors.New("empty")
		}
		return nil
	}
	obs := &recordingObserver{}

	doc, err := NewFetcher(local, remote, WithObserver(obs)).Fetch(context.Background(), locs, WithAccept(nonEmpty))
	require.NoError(t, err)
	assert.Equal(t, "- name: readme", doc.Text)
	assert.Equal(t, []recordedAttempt{
		{ClassSpecDocument, TierLocal, OutcomeRejected},
		{ClassSpecDocument, TierRemote, OutcomeHit},
	}, obs.attempts)
}

func TestFetcher_AcceptRejectsEveryCandidate(t *testing.T) {
	t.Parallel()
	locs := specCandidates(t, "index.yml")
	local := &fakeLocal{files: map[string]string{locs[0].Target: ""}}
	remote := &fakeRemote{t: t, pages: map[string]string{locs[1].Target: ""}}
	reject := func([]byte) error { return errors.New("empty") }

	_, err := NewFetcher(local, remote).Fetch(context.Background(), locs, WithAccept(reject))
	require.ErrorIs(t, err, ErrInvalidDocument)
}

func TestFetcher_ObserverOutcomes(t *testing.T) {
	t.Parallel()
	locs := specCandidates(t, "readme.md")
	obs := &recordingObserver{}
	local := &fakeLocal{errs: map[string]error{locs[0].Target: fs.ErrPermission}}
	_, err := NewFetcher(local, &fakeRemote{t: t}, WithObserver(obs)).Fetch(context.Background(), locs)
	require.Error(t, err)
	assert.Equal(t, []recordedAttempt{
		{ClassSpecDocument, TierLocal, OutcomeError},
		{ClassSpecDocument, TierRemote, OutcomeMiss},
	}, obs.attempts)
}

func TestFetcher_NoCandidates(t *testing.T) {
	t.Parallel()
	_, err := NewFetcher(&fakeLocal{}, &fakeRemote{t: t, deny: true}).Fetch(context.Background(), nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFetcher_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	local := &fakeLocal{}
	_, err := NewFetcher(local, &fakeRemote{t: t, deny: true}).Fetch(ctx, specCandidates(t, "readme.md"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, local.calls)
}

func TestNewFetcher_NilPanics(t *testing.T) {
	t.Parallel()
	require.Panics(t, func() { NewFetcher(nil, &fakeRemote{t: t}) })
	require.Panics(t, func() { NewFetcher(&fakeLocal{}, nil) })
}

func TestFetcher_Concurrent(t *testing.T) {
	t.Parallel()
	locs := specCandidates(t, "readme.md")
	f := NewFetcher(&fakeLocal{files: map[string]string{locs[0].Target: "x"}}, &fakeRemote{t: t, deny: true})
	var wg sync.WaitGroup
	for range 20 {
		wg.Go(func() {
			doc, err := f.Fetch(context.Background(), locs)
			assert.NoError(t, err)
			assert.Equal(t, "x", doc.Text)
		})
	}
	wg.Wait()
}
