// Package blob is the facade over the blob storage backends. Fixture sources
// and the blob-backed overlay driver depend on blob.Store only; concrete
// implementations live under internal/infra/blob.
package blob

import (
	"shelterdb/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
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
	// ErrUnsupported indicates an operation isn't supported by a driver.
	ErrUnsupported = core.ErrUnsupported
	// ErrNotFound matches errors for missing keys.
	ErrNotFound = core.ErrNotFound
	// ErrExists is returned by create-only writes to a taken key.
	ErrExists = core.ErrExists
)
