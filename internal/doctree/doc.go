// Package doctree holds loosely typed structured documents (index files,
// tool manifests) as an ordered tree.
//
// Accessors never panic: a lookup on the wrong kind of node, or on a missing
// key, reports ok=false. Mapping keys keep their document order, which is
// also the order of the JSON rendering.
package doctree
