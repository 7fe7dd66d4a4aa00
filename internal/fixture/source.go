// Package fixture provides the read-only seed documents for each collection.
//
// A fixture document is JSON of the form {"<collection>": [ ...records ]}.
// Sources return the raw document; decoding belongs to the record store so
// that a malformed document degrades the same way regardless of origin.
package fixture

import (
	"context"
	"errors"
	"fmt"
)

// Driver identifies a fixture source implementation.
type Driver string

const (
	// DriverEmbedded serves the fixtures compiled into the binary.
	DriverEmbedded Driver = "embedded"
	// DriverBlob reads fixtures from a blob store (directory, bucket, memory).
	DriverBlob Driver = "blob"
	// DriverHTTP fetches fixtures from a static web server.
	DriverHTTP Driver = "http"
)

// DefaultPrefix is the key prefix used by blob fixtures.
const DefaultPrefix = "data/"

// ErrUnavailable reports a fixture that could not be fetched. Callers treat
// it as an empty collection.
var ErrUnavailable = errors.New("fixture: unavailable")

// Source fetches the fixture document for a collection.
type Source interface {
	Fetch(ctx context.Context, collection string) ([]byte, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, collection string) ([]byte, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context, collection string) ([]byte, error) {
	return f(ctx, collection)
}

// FileName returns the document name for collection.
func FileName(collection string) string { return collection + ".json" }

func unavailable(collection string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", collection, ErrUnavailable)
	}
	return fmt.Errorf("%s: %w: %w", collection, ErrUnavailable, cause)
}
