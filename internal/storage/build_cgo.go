//go:build sqlite_vec
// +build sqlite_vec

package storage

// Compiled with CGO and the sqlite_vec tag. Dense search ranks inside
// SQLite with vec_distance_cosine, so the sqlite-vec extension must be
// loadable by the driver.
//
//   CGO_ENABLED=1 go build -tags sqlite_vec ./...
//
// Driver: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = true

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
