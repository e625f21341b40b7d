package pmagentspec

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Class is the kind of resource being located. It selects the root directory,
// the mirror prefix and the naming convention.
type Class int

// Resource classes.
const (
	ClassIndex Class = iota + 1
	ClassPrompt
	ClassToolManifest
	ClassSpecDocument
	ClassToolSpecFile
	ClassToolSpec
	ClassTemplate
)

// String returns the label used in logs and metrics.
func (c Class) String() string {
	switch c {
	case ClassIndex:
		return "index"
	case ClassPrompt:
		return "prompt"
	case ClassToolManifest:
		return "tool_manifest"
	case ClassSpecDocument:
		return "spec"
	case ClassToolSpecFile:
		return "tool_spec_file"
	case ClassToolSpec:
		return "tool_spec"
	case ClassTemplate:
		return "template"
	default:
		return "unknown"
	}
}

// Tier tells whether a Location is on the local filesystem or on the mirror.
type Tier int

// Storage tiers.
const (
	TierLocal Tier = iota + 1
	TierRemote
)

// String returns "local" or "remote".
func (t Tier) String() string {
	switch t {
	case TierLocal:
		return "local"
	case TierRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Location is one candidate for a lookup.
// Path is the normalized slash path relative to the class root; Target is the
// filesystem path (TierLocal) or the absolute URL (TierRemote).
type Location struct {
	Class  Class
	Tier   Tier
	Path   string
	Target string
}

// toolSpecExtensions are tried in this order for ClassToolSpec.
var toolSpecExtensions = []string{".yml", ".yaml"}

// Locator turns logical names into ordered candidate locations.
// It never touches storage; the zero value is not usable, use NewLocator.
type Locator struct {
	cfg     Config
	baseURL string
}

// NewLocator returns a Locator for cfg. cfg should already be validated.
func NewLocator(cfg Config) *Locator {
	return &Locator{cfg: cfg, baseURL: strings.TrimSuffix(cfg.BaseURL, "/")}
}

// Config returns the configuration the Locator was built with.
func (l *Locator) Config() Config { return l.cfg }

// Locate returns the candidates for name in resolution order: local
// candidates precede their remote twins. name is ignored for the fixed-file
// classes (index, prompt, tool manifest).
// Returns ErrInvalidName if name is empty, absolute, or escapes its root.
func (l *Locator) Locate(class Class, name string) ([]Location, error) {
	switch class {
	case ClassIndex:
		return l.pair(class, l.cfg.SpecDir, RemoteSpecDir, l.cfg.IndexFile)
	case ClassPrompt:
		return l.pair(class, l.cfg.PromptDir, RemotePromptDir, l.cfg.PromptFile)
	case ClassToolManifest:
		return l.pair(class, l.cfg.ToolSpecDir, RemoteToolSpecDir, l.cfg.ManifestFile)
	case ClassSpecDocument:
		return l.pair(class, l.cfg.SpecDir, RemoteSpecDir, name)
	case ClassToolSpecFile:
		return l.pair(class, l.cfg.ToolSpecDir, RemoteToolSpecDir, name)
	case ClassTemplate:
		if !strings.HasSuffix(name, ".md") {
			name += ".md"
		}
		return l.pair(class, l.cfg.TemplateDir, RemoteTemplateDir, name)
	case ClassToolSpec:
		// Every local extension is tried before the mirror is contacted.
		local := make([]Location, 0, len(toolSpecExtensions))
		remote := make([]Location, 0, len(toolSpecExtensions))
		for _, ext := range toolSpecExtensions {
			locs, err := l.pair(class, l.cfg.ToolSpecDir, RemoteToolSpecDir, name+ext)
			if err != nil {
				return nil, err
			}
			local = append(local, locs[0])
			remote = append(remote, locs[1])
		}
		return append(local, remote...), nil
	default:
		return nil, fmt.Errorf("pmagentspec: unknown resource class %d", class)
	}
}

// LocalDir returns the local root directory of class.
func (l *Locator) LocalDir(class Class) (string, error) {
	var dir string
	switch class {
	case ClassIndex, ClassSpecDocument:
		dir = l.cfg.SpecDir
	case ClassPrompt:
		dir = l.cfg.PromptDir
	case ClassToolManifest, ClassToolSpecFile, ClassToolSpec:
		dir = l.cfg.ToolSpecDir
	case ClassTemplate:
		dir = l.cfg.TemplateDir
	default:
		return "", fmt.Errorf("pmagentspec: unknown resource class %d", class)
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(l.cfg.Root, dir)
	}
	return dir, nil
}

func (l *Locator) pair(class Class, localDir, remoteDir, name string) ([]Location, error) {
	rel, err := NormalizePath(name)
	if err != nil {
		return nil, err
	}
	return []Location{
		{Class: class, Tier: TierLocal, Path: rel, Target: l.localPath(localDir, rel)},
		{Class: class, Tier: TierRemote, Path: rel, Target: l.remoteURL(remoteDir, rel)},
	}, nil
}

func (l *Locator) localPath(dir, rel string) string {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(l.cfg.Root, dir)
	}
	return filepath.Join(dir, filepath.FromSlash(rel))
}

func (l *Locator) remoteURL(dir, rel string) string {
	return l.baseURL + "/" + escapeSegments(dir) + "/" + escapeSegments(rel)
}

// NormalizePath collapses "." and ".." segments of a relative slash path.
// Returns ErrInvalidName if the result is empty, absolute, or escapes the root.
func NormalizePath(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidName)
	}
	if path.IsAbs(p) || filepath.IsAbs(p) {
		return "", fmt.Errorf("%w: absolute path %q", ErrInvalidName, p)
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q escapes its root", ErrInvalidName, p)
	}
	return clean, nil
}

func escapeSegments(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
