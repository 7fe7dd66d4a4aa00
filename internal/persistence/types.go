// Package persistence re-exports the durable key-value abstractions and wires
// the infra-backed drivers for the rest of the tree.
package persistence

import (
	"shelterdb/internal/persistence/core"
)

type (
	// Driver identifies a key-value backend driver.
	Driver = core.Driver
	// Store is the interface for durable key-value backends.
	Store = core.Store
)

const (
	// DriverMemory is the in-memory driver.
	DriverMemory = core.DriverMemory
	// DriverSQLite is the embedded sqlite driver.
	DriverSQLite = core.DriverSQLite
	// DriverPostgres is the PostgreSQL driver.
	DriverPostgres = core.DriverPostgres
	// DriverBlob stores entries as blobs.
	DriverBlob = core.DriverBlob
)

var (
	// ErrQuotaExceeded reports a write refused for size reasons.
	ErrQuotaExceeded = core.ErrQuotaExceeded
	// ErrEmptyKey reports a blank key.
	ErrEmptyKey = core.ErrEmptyKey
)
