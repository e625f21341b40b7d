package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	pmagentspec "github.com/Azure/PMAgent-Spec"
	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// specFilePattern matches tool-spec file names after lowercasing.
const specFilePattern = "*.{yml,yaml}"

// Lister lists the regular files of a local directory.
// filesource.Source implements it.
type Lister interface {
	List(ctx context.Context, dir string) ([]string, error)
}

// Resolver loads the manifest on every call; there is no cache.
type Resolver struct {
	locator *pmagentspec.Locator
	fetcher *pmagentspec.Fetcher
	lister  Lister
	logger  *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger. A nil logger leaves the no-op default.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l.Named("manifest")
		}
	}
}

// WithLister sets the directory lister used by ListSpecNames.
// Without one, ListSpecNames reports no names.
func WithLister(l Lister) Option {
	return func(r *Resolver) { r.lister = l }
}

// New returns a Resolver. Panics if locator or fetcher is nil.
func New(locator *pmagentspec.Locator, fetcher *pmagentspec.Fetcher, opts ...Option) *Resolver {
	if locator == nil || fetcher == nil {
		panic("manifest: locator and fetcher must not be nil")
	}
	r := &Resolver{locator: locator, fetcher: fetcher, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load returns the manifest. An empty or malformed candidate is skipped in
// favour of the next one. Returns an error wrapping ErrUnavailable when no
// candidate yields a usable manifest.
func (r *Resolver) Load(ctx context.Context) (Manifest, error) {
	locs, err := r.locator.Locate(pmagentspec.ClassToolManifest, "")
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	accept := func(data []byte) error {
		parsed, perr := ParseBytes(data)
		if perr != nil {
			return perr
		}
		m = parsed
		return nil
	}
	doc, err := r.fetcher.Fetch(ctx, locs, pmagentspec.WithAccept(accept))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Manifest{}, ctxErr
		}
		return Manifest{}, fmt.Errorf("%w: tool manifest: %w", pmagentspec.ErrUnavailable, err)
	}
	r.logger.Debug("manifest loaded",
		zap.Stringer("tier", doc.Source.Tier),
		zap.Int("tools", len(m.Tools)))
	return m, nil
}

// Entry returns the first manifest entry named name.
// Returns *pmagentspec.LookupError wrapping ErrNotFound when absent.
func (r *Resolver) Entry(ctx context.Context, name string) (Entry, error) {
	m, err := r.Load(ctx)
	if err != nil {
		return Entry{}, err
	}
	e, ok := m.Lookup(name)
	if !ok {
		return Entry{}, &pmagentspec.LookupError{Kind: "tool", Name: name, Err: pmagentspec.ErrNotFound}
	}
	return e, nil
}

// SpecFile returns the normalized spec_file path of the entry named name.
// Returns an error wrapping ErrNoSpecFile when the entry has none.
func (r *Resolver) SpecFile(ctx context.Context, name string) (string, error) {
	e, err := r.Entry(ctx, name)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(e.SpecFile) == "" {
		return "", &pmagentspec.LookupError{Kind: "tool", Name: name, Err: pmagentspec.ErrNoSpecFile}
	}
	return pmagentspec.NormalizePath(e.SpecFile)
}

// FetchSpec resolves name through the manifest and fetches the referenced
// document, local tree first.
func (r *Resolver) FetchSpec(ctx context.Context, name string) (pmagentspec.Document, error) {
	specFile, err := r.SpecFile(ctx, name)
	if err != nil {
		return pmagentspec.Document{}, err
	}
	locs, err := r.locator.Locate(pmagentspec.ClassToolSpecFile, specFile)
	if err != nil {
		return pmagentspec.Document{}, err
	}
	return r.fetcher.Fetch(ctx, locs)
}

// FetchDirect fetches name.yml, then name.yaml, without consulting the
// manifest. With a Lister, local files whose extension differs only in
// letter case (name.YAML) are found too.
func (r *Resolver) FetchDirect(ctx context.Context, name string) (pmagentspec.Document, error) {
	locs, err := r.locator.Locate(pmagentspec.ClassToolSpec, name)
	if err != nil {
		return pmagentspec.Document{}, err
	}
	if r.lister != nil {
		locs = r.matchExtensionCase(ctx, locs)
	}
	return r.fetcher.Fetch(ctx, locs)
}

// matchExtensionCase points each local candidate at the file present in its
// directory when only the extension's letter case differs. An exact match
// wins; directories that cannot be listed are left alone.
func (r *Resolver) matchExtensionCase(ctx context.Context, locs []pmagentspec.Location) []pmagentspec.Location {
	out := slices.Clone(locs)
	listed := make(map[string][]string)
	for i, loc := range out {
		if loc.Tier != pmagentspec.TierLocal {
			continue
		}
		dir, base := filepath.Split(loc.Target)
		files, ok := listed[dir]
		if !ok {
			var err error
			if files, err = r.lister.List(ctx, dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
				r.logger.Debug("listing tool spec directory failed", zap.String("dir", dir), zap.Error(err))
			}
			listed[dir] = files
		}
		if actual, found := extensionVariant(files, base); found {
			out[i].Target = filepath.Join(dir, actual)
			out[i].Path = path.Join(path.Dir(loc.Path), actual)
		}
	}
	return out
}

// extensionVariant returns the entry of files that equals base up to the
// letter case of its extension. It reports false when base itself exists.
func extensionVariant(files []string, base string) (string, bool) {
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	var match string
	for _, f := range files {
		if f == base {
			return "", false
		}
		fext := path.Ext(f)
		if match == "" && strings.TrimSuffix(f, fext) == stem && strings.EqualFold(fext, ext) {
			match = f
		}
	}
	return match, match != ""
}

// ListSpecNames returns the tool-spec names found in the local tool-spec
// directory: files ending in .yml or .yaml in any letter case, extension
// stripped, deduplicated and sorted. The manifest file itself is skipped.
// A missing directory yields no names.
func (r *Resolver) ListSpecNames(ctx context.Context) ([]string, error) {
	if r.lister == nil {
		return nil, nil
	}
	dir, err := r.locator.LocalDir(pmagentspec.ClassToolSpec)
	if err != nil {
		return nil, err
	}
	files, err := r.lister.List(ctx, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	manifestFile := strings.ToLower(r.locator.Config().ManifestFile)
	seen := make(map[string]struct{}, len(files))
	var names []string
	for _, f := range files {
		lower := strings.ToLower(f)
		if lower == manifestFile {
			continue
		}
		ok, merr := doublestar.Match(specFilePattern, lower)
		if merr != nil {
			return nil, merr
		}
		if !ok {
			continue
		}
		name := f[:strings.LastIndexByte(f, '.')]
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
