package manifest

import (
	"fmt"
	"io/fs"

	pmagentspec "github.com/Azure/PMAgent-Spec"
	"github.com/Azure/PMAgent-Spec/internal/doctree"
)

// Manifest is a parsed tool manifest. Root keeps the whole document for
// rendering; Tools holds the entries of the top-level "tools" sequence.
type Manifest struct {
	Root  doctree.Node
	Tools []Entry
}

// Entry is one tool spec declared by the manifest.
// SpecFile is empty when the entry does not reference a document.
type Entry struct {
	Name     string
	SpecFile string
	Node     doctree.Node
}

// ParseBytes parses a manifest document. Any non-empty document is accepted;
// a missing or malformed "tools" key only leaves Tools empty.
// Returns an error wrapping pmagentspec.ErrInvalidDocument when data is
// empty or not valid YAML.
func ParseBytes(data []byte) (Manifest, error) {
	root, err := doctree.Parse(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %w", pmagentspec.ErrInvalidDocument, err)
	}
	if root.Empty() {
		return Manifest{}, fmt.Errorf("%w: empty manifest", pmagentspec.ErrInvalidDocument)
	}
	m := Manifest{Root: root}
	tools, _ := root.Field("tools")
	items, _ := tools.Items()
	for _, it := range items {
		if it.Kind() != doctree.Mapping {
			continue
		}
		e := Entry{Node: it}
		e.Name, _ = it.FieldStr("name")
		e.SpecFile, _ = it.FieldStr("spec_file")
		m.Tools = append(m.Tools, e)
	}
	return m, nil
}

// ParseFS reads and parses a manifest from fs.FS (e.g. embed.FS).
func ParseFS(fsys fs.FS, name string) (Manifest, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest: read fs: %w", err)
	}
	return ParseBytes(data)
}

// Lookup returns the first entry named name. Entries without a name never
// match.
func (m Manifest) Lookup(name string) (Entry, bool) {
	for _, e := range m.Tools {
		if e.Name != "" && e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}
