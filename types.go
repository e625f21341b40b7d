package pmagentspec

// IndexEntry maps a human-facing spec name to its document path.
// File is relative to the spec root.
type IndexEntry struct {
	Name        string `yaml:"name" json:"name"`
	File        string `yaml:"file" json:"file"`
	Description string `yaml:"description" json:"description"`
}
