//go:build !sqlite_vec
// +build !sqlite_vec

package storage

// Default build. Dense vectors are loaded and scored in Go, which is
// fine for corpora of a few hundred thousand abstracts.
//
//   CGO_ENABLED=0 go build ./...
//
// Driver: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = false

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
