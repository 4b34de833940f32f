// Package app contains the sweep lifecycle: it loads the sweep definition,
// expands and deduplicates the grid, filters completed experiments and
// drives the executor, decoupled from any specific entrypoint like a CLI.
package app
