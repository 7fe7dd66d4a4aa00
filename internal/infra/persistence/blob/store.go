// Package blob stores overlay entries as individual blobs, one object per key,
// under a configurable prefix of a blob.Store.
package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"

	blobstore "shelterdb/internal/blob"
	"shelterdb/internal/persistence/core"
)

// DefaultPrefix namespaces overlay entries inside a shared bucket or directory.
const DefaultPrefix = "overlay/"

var _ core.Store = (*Store)(nil)

// Store adapts a blob.Store to the key-value contract.
type Store struct {
	blobs  blobstore.Store
	prefix string
}

// NewStore wraps blobs. An empty prefix selects DefaultPrefix.
func NewStore(blobs blobstore.Store, prefix string) (*Store, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob kv: nil blob store")
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{blobs: blobs, prefix: prefix}, nil
}

// Driver returns the backend identifier.
func (s *Store) Driver() core.Driver { return core.DriverBlob }

// Prefix returns the key prefix applied to every entry.
func (s *Store) Prefix() string { return s.prefix }

func (s *Store) objectKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", core.ErrEmptyKey
	}
	return s.prefix + key, nil
}

// Get reads the blob backing key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	obj, err := s.objectKey(key)
	if err != nil {
		return nil, false, err
	}
	payload, err := blobstore.ReadAll(ctx, s.blobs, obj)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("blob kv get %s: %w", key, err)
	}
	return payload, true, nil
}

// Put replaces the blob backing key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	obj, err := s.objectKey(key)
	if err != nil {
		return err
	}
	if _, err := blobstore.WriteJSON(ctx, s.blobs, obj, value); err != nil {
		return fmt.Errorf("blob kv put %s: %w", key, err)
	}
	return nil
}

// Delete removes the blob backing key.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	obj, err := s.objectKey(key)
	if err != nil {
		return false, err
	}
	return s.blobs.Delete(ctx, obj)
}

// Keys lists entry keys with the prefix stripped.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	infos, err := s.blobs.List(ctx, s.prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		keys = append(keys, strings.TrimPrefix(info.Key, s.prefix))
	}
	return keys, nil
}
