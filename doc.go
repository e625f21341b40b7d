// Package pmagentspec resolves named specification documents (content
// templates, tool manifests, prompt text) from a local file tree with a
// fallback to a fixed remote repository mirror.
//
// The root package holds the shared vocabulary: Config, the Locator that turns
// a logical name into ordered candidate Locations, and the Fetcher that tries
// those candidates local-first. Storage tiers live in filesource and
// remotesource; index, manifest and expand build on the Fetcher; engine turns
// every result into the plain strings served to tool hosts.
package pmagentspec
