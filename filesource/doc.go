// Package filesource provides the local tier of the resolution chain. Use New
// to read from the OS filesystem or NewFS to read from an fs.FS (embed.FS,
// fstest.MapFS). Nothing is cached: every ReadFile hits storage.
package filesource
