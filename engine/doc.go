// Package engine exposes the resolution operations as plain strings, the
// form tool hosts hand back to the model.
//
// Every operation re-reads its inputs; nothing is cached between calls.
// Failures never surface as Go errors: each maps to a fixed message, e.g.
//
//	Error: Spec 'nonexistent_spec' not found in index.
package engine
