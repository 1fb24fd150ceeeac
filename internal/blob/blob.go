// Package blob re-exports the core artifact store abstractions for stable
// imports and selects a backend from the environment.
package blob

import (
	"battcore/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures an artifact write.
	PutOptions = core.PutOptions
	// Info describes stored artifact metadata.
	Info = core.Info
	// Store is the interface for artifact storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrExists indicates a create-only write hit an occupied key.
	ErrExists = core.ErrExists
	// ErrNotFound indicates a key does not resolve to an artifact.
	ErrNotFound = core.ErrNotFound
)
