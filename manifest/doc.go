// Package manifest resolves tool specs through the tool manifest
// (tool_specs/manifest.yml), and by file-name convention when the manifest
// indirection is not used.
//
// A manifest is a free-form YAML document with a "tools" sequence; each entry
// has a "name" and usually a "spec_file" relative to the tool-spec root:
//
//	tools:
//	  - name: github_mcp
//	    spec_file: mcp/github.md
//	    capabilities: [issues, pulls]
package manifest
