package fixture

import (
	"fmt"

	"shelterdb/internal/blob"
)

// Config selects a fixture source.
type Config struct {
	Driver Driver
	URL    string // base URL when Driver=http
	Prefix string // key prefix when Driver=blob
}

// Open constructs the Source described by cfg. blobs backs the blob driver.
func Open(cfg Config, blobs blob.Store) (Source, error) {
	switch cfg.Driver {
	case "", DriverEmbedded:
		return NewEmbedded(), nil
	case DriverBlob:
		if blobs == nil {
			return nil, fmt.Errorf("fixture: blob driver requires a blob store")
		}
		return NewBlob(blobs, cfg.Prefix), nil
	case DriverHTTP:
		return NewHTTP(cfg.URL, nil)
	default:
		return nil, fmt.Errorf("unknown fixture driver %s", cfg.Driver)
	}
}
