// Package core defines the durable key-value abstraction that holds
// collection overlays.
package core

import (
	"context"
	"errors"
)

// Driver identifies a concrete key-value backend implementation.
type Driver string

const (
	// DriverMemory keeps entries in process memory (tests / ephemeral).
	DriverMemory Driver = "memory"
	// DriverSQLite stores entries in an embedded sqlite file.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres stores entries in a PostgreSQL table.
	DriverPostgres Driver = "postgres"
	// DriverBlob stores one blob per entry in a blob.Store (filesystem directory or S3 bucket).
	DriverBlob Driver = "blob"
)

// Store is a string-keyed document store with whole-value reads and writes.
// Values are opaque bytes; callers own the encoding.
type Store interface {
	// Get returns the value stored under key. The boolean is false when the key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put overwrites the value stored under key.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key, reporting whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// Keys lists stored keys in ascending order.
	Keys(ctx context.Context) ([]string, error)
	// Driver returns the backend identifier.
	Driver() Driver
}

var (
	// ErrQuotaExceeded is returned by Put when the backend refuses a write for size reasons.
	ErrQuotaExceeded = errors.New("persistence: quota exceeded")
	// ErrEmptyKey is returned when an operation receives a blank key.
	ErrEmptyKey = errors.New("persistence: empty key")
)
