// Package testmirror provides an in-process stand-in for the remote spec
// mirror and a ready-to-use resolution stack for tests.
package testmirror

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	pmagentspec "github.com/Azure/PMAgent-Spec"
	"github.com/Azure/PMAgent-Spec/filesource"
	"github.com/Azure/PMAgent-Spec/remotesource"
)

// Mirror serves Pages by URL path (without the leading slash). Paths listed
// in Status answer with that status code instead. Everything else is 404.
type Mirror struct {
	URL string

	mu     sync.Mutex
	pages  map[string]string
	status map[string]int
	hits   []string
}

// New starts a Mirror that is closed when the test ends.
func New(t testing.TB, pages map[string]string) *Mirror {
	t.Helper()
	m := &Mirror{pages: pages, status: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(srv.Close)
	m.URL = srv.URL
	return m
}

// SetStatus makes path answer with code.
func (m *Mirror) SetStatus(path string, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[path] = code
}

// Hits returns the requested paths in order.
func (m *Mirror) Hits() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.hits...)
}

func (m *Mirror) serve(w http.ResponseWriter, r *http.Request) {
	p := strings.TrimPrefix(r.URL.Path, "/")
	m.mu.Lock()
	m.hits = append(m.hits, p)
	code, forced := m.status[p]
	body, ok := m.pages[p]
	m.mu.Unlock()
	switch {
	case forced:
		w.WriteHeader(code)
	case ok:
		_, _ = w.Write([]byte(body))
	default:
		http.NotFound(w, r)
	}
}

// Stack is a Locator and Fetcher over an in-memory local tree and a Mirror.
type Stack struct {
	Config  pmagentspec.Config
	Locator *pmagentspec.Locator
	Fetcher *pmagentspec.Fetcher
	Local   *filesource.Source
	Mirror  *Mirror
}

// NewStack wires local (rooted at the repository layout) and a Mirror
// serving remote. Extra fetcher options are applied as given.
func NewStack(t testing.TB, local fs.FS, remote map[string]string, opts ...pmagentspec.FetcherOption) *Stack {
	t.Helper()
	if local == nil {
		local = fstest.MapFS{}
	}
	mirror := New(t, remote)
	cfg := pmagentspec.DefaultConfig()
	cfg.BaseURL = mirror.URL
	src := filesource.NewFS(local)
	return &Stack{
		Config:  cfg,
		Locator: pmagentspec.NewLocator(cfg),
		Fetcher: pmagentspec.NewFetcher(src, remotesource.NewHTTPFetcher(), opts...),
		Local:   src,
		Mirror:  mirror,
	}
}

// Files builds an fstest.MapFS from path/content pairs.
func Files(files map[string]string) fstest.MapFS {
	fsys := make(fstest.MapFS, len(files))
	for name, body := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return fsys
}
