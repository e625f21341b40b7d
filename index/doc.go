// Package index resolves human-facing spec names to document paths through
// the spec index (spec/index.yml), consulting the local tree before the
// remote mirror.
package index
