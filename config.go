package pmagentspec

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultBaseURL is the public mirror of the spec repository.
const DefaultBaseURL = "https://raw.githubusercontent.com/Azure/PMAgent-Spec/main"

// Path prefixes of each resource root under the mirror base URL.
const (
	RemoteSpecDir     = "spec"
	RemotePromptDir   = "prompts"
	RemoteToolSpecDir = "tool_specs"
	RemoteTemplateDir = "spec/templates"
)

// Config holds the roots and mirror URL the engine resolves against.
// It is built once at startup and passed by value to constructors.
//
// Directory fields are relative to Root unless absolute. They only move the
// local tree; the mirror under BaseURL always uses the repository layout
// (see the Remote* constants).
type Config struct {
	Root        string
	SpecDir     string
	PromptDir   string
	ToolSpecDir string
	TemplateDir string
	BaseURL     string

	IndexFile    string
	PromptFile   string
	ManifestFile string
}

// DefaultConfig returns the layout of the PMAgent-Spec repository.
func DefaultConfig() Config {
	return Config{
		Root:         ".",
		SpecDir:      "spec",
		PromptDir:    "prompts",
		ToolSpecDir:  "tool_specs",
		TemplateDir:  "spec/templates",
		BaseURL:      DefaultBaseURL,
		IndexFile:    "index.yml",
		PromptFile:   "system_prompts.md",
		ManifestFile: "manifest.yml",
	}
}

// Validate reports missing or malformed fields.
func (c Config) Validate() error {
	for field, v := range map[string]string{
		"spec dir":      c.SpecDir,
		"prompt dir":    c.PromptDir,
		"tool spec dir": c.ToolSpecDir,
		"template dir":  c.TemplateDir,
		"index file":    c.IndexFile,
		"prompt file":   c.PromptFile,
		"manifest file": c.ManifestFile,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("pmagentspec: config: %s must not be empty", field)
		}
	}
	base := strings.TrimSuffix(c.BaseURL, "/")
	if base == "" {
		return fmt.Errorf("pmagentspec: config: base URL must not be empty")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("pmagentspec: config: invalid base URL %q", c.BaseURL)
	}
	return nil
}
