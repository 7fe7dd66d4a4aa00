package fixture

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"shelterdb/internal/blob"
)

// Blob reads fixtures from a blob store under a key prefix.
type Blob struct {
	store  blob.Store
	prefix string
}

// NewBlob returns a Blob source. An empty prefix selects DefaultPrefix.
func NewBlob(store blob.Store, prefix string) *Blob {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Blob{store: store, prefix: prefix}
}

// Key returns the blob key holding the fixture for collection.
func (b *Blob) Key(collection string) string { return b.prefix + FileName(collection) }

// Fetch reads the fixture blob. Missing blobs report ErrUnavailable.
func (b *Blob) Fetch(ctx context.Context, collection string) ([]byte, error) {
	payload, err := blob.ReadAll(ctx, b.store, b.Key(collection))
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, unavailable(collection, nil)
		}
		return nil, unavailable(collection, err)
	}
	return payload, nil
}

// Seed copies the bundled fixtures into the blob store. Existing blobs are
// left untouched unless overwrite is set. It returns the keys written.
func (b *Blob) Seed(ctx context.Context, overwrite bool) ([]string, error) {
	var written []string
	for _, collection := range Bundled() {
		payload, err := NewEmbedded().Fetch(ctx, collection)
		if err != nil {
			return written, err
		}
		key := b.Key(collection)
		opts := blob.PutOptions{ContentType: "application/json", Overwrite: overwrite}
		_, err = b.store.Put(ctx, key, bytes.NewReader(payload), opts)
		if errors.Is(err, blob.ErrExists) {
			continue
		}
		if err != nil {
			return written, fmt.Errorf("seed %s: %w", key, err)
		}
		written = append(written, key)
	}
	return written, nil
}
