package filesource

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	pmagentspec "github.com/Azure/PMAgent-Spec"
)

// Ensures Source implements pmagentspec.LocalReader.
var _ pmagentspec.LocalReader = (*Source)(nil)

// Source reads local candidates. The zero value is not usable; use New or NewFS.
type Source struct {
	fsys fs.FS // nil means the OS filesystem
}

// New returns a Source backed by the OS filesystem.
func New() *Source {
	return &Source{}
}

// NewFS returns a Source backed by fsys. Names passed to ReadFile and List are
// converted to slash paths relative to the root of fsys.
// Panics if fsys is nil.
func NewFS(fsys fs.FS) *Source {
	if fsys == nil {
		panic("filesource: fs.FS must not be nil")
	}
	return &Source{fsys: fsys}
}

// ReadFile returns the content of name. A missing file yields an error
// matching fs.ErrNotExist; other failures (directory, permission) are returned
// as is for the caller to treat as read failures.
func (s *Source) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.fsys == nil {
		data, err := os.ReadFile(name) // #nosec G304 -- name is built by Locator from configured roots and a normalized relative path
		if err != nil {
			return nil, fmt.Errorf("filesource: read %s: %w", name, err)
		}
		return data, nil
	}
	p, err := fsPath(name)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(s.fsys, p)
	if err != nil {
		return nil, fmt.Errorf("filesource: read %s: %w", p, err)
	}
	return data, nil
}

// List returns the names of the regular files directly inside dir, sorted.
// Subdirectories are skipped. A missing dir yields an error matching fs.ErrNotExist.
func (s *Source) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		entries []fs.DirEntry
		err     error
	)
	if s.fsys == nil {
		entries, err = os.ReadDir(dir)
	} else {
		var p string
		if p, err = fsPath(dir); err == nil {
			entries, err = fs.ReadDir(s.fsys, p)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("filesource: list %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// fsPath converts an OS-style path into an fs.FS path.
func fsPath(name string) (string, error) {
	p := path.Clean(filepath.ToSlash(name))
	if !fs.ValidPath(p) {
		return "", &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	return p, nil
}
