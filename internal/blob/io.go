package blob

import (
	"bytes"
	"context"
	"io"
)

// ReadAll fetches the full content stored at key.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	_, rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// WriteJSON stores payload at key as application/json, replacing any
// existing blob.
func WriteJSON(ctx context.Context, s Store, key string, payload []byte) (Info, error) {
	return s.Put(ctx, key, bytes.NewReader(payload), PutOptions{ContentType: "application/json", Overwrite: true})
}
