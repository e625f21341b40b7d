// Package expand substitutes {{ fragment }} placeholders in spec documents
// with template fragments from the template root.
package expand

import (
	"context"
	"regexp"
	"sort"
	"strings"

	pmagentspec "github.com/Azure/PMAgent-Spec"
	"go.uber.org/zap"
)

// placeholder matches {{name}} with optional inner whitespace. The name is
// one or more characters that are neither braces nor whitespace.
var placeholder = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// Expander performs one substitution pass per call.
type Expander struct {
	locator *pmagentspec.Locator
	fetcher *pmagentspec.Fetcher
	logger  *zap.Logger
}

// Option configures an Expander.
type Option func(*Expander)

// WithLogger sets the logger. A nil logger leaves the no-op default.
func WithLogger(l *zap.Logger) Option {
	return func(e *Expander) {
		if l != nil {
			e.logger = l.Named("expand")
		}
	}
}

// New returns an Expander. Panics if locator or fetcher is nil.
func New(locator *pmagentspec.Locator, fetcher *pmagentspec.Fetcher, opts ...Option) *Expander {
	if locator == nil || fetcher == nil {
		panic("expand: locator and fetcher must not be nil")
	}
	e := &Expander{locator: locator, fetcher: fetcher, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type fragment struct {
	text string
	ok   bool
}

// Expand replaces every placeholder whose fragment resolves with the
// fragment text, trimmed. Unresolved placeholders stay as written.
// Substituted text is not scanned again.
//
// The second result lists the fragment names that were substituted, without
// the .md extension, sorted and without duplicates. Each fragment file is
// fetched at most once per call.
func (e *Expander) Expand(ctx context.Context, text string) (string, []string) {
	matches := placeholder.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}
	resolved := make(map[string]fragment)
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		name := fragmentName(text[m[2]:m[3]])
		frag, seen := resolved[name]
		if !seen {
			frag = e.load(ctx, name)
			resolved[name] = frag
		}
		b.WriteString(text[last:m[0]])
		if frag.ok {
			b.WriteString(frag.text)
		} else {
			b.WriteString(text[m[0]:m[1]])
		}
		last = m[1]
	}
	b.WriteString(text[last:])

	var used []string
	for name, frag := range resolved {
		if frag.ok {
			used = append(used, strings.TrimSuffix(name, ".md"))
		}
	}
	sort.Strings(used)
	return b.String(), used
}

// fragmentName maps {{footer}} and {{footer.md}} to the fragment file
// footer.md.
func fragmentName(id string) string {
	if strings.HasSuffix(id, ".md") {
		return id
	}
	return id + ".md"
}

func (e *Expander) load(ctx context.Context, name string) fragment {
	locs, err := e.locator.Locate(pmagentspec.ClassTemplate, name)
	if err != nil {
		e.logger.Debug("placeholder left as is", zap.String("template", name), zap.Error(err))
		return fragment{}
	}
	doc, err := e.fetcher.Fetch(ctx, locs)
	if err != nil {
		e.logger.Debug("placeholder left as is", zap.String("template", name), zap.Error(err))
		return fragment{}
	}
	return fragment{text: strings.TrimSpace(doc.Text), ok: true}
}
