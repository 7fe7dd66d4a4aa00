package blob

import (
	"context"
	"errors"
	"testing"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	fsStore, err := Open(ctx, Config{FSRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	if fsStore.Driver() != DriverFilesystem {
		t.Fatalf("expected default fs driver, got %s", fsStore.Driver())
	}
	mem, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil || mem.Driver() != DriverMemory {
		t.Fatalf("open memory: %v", err)
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); err == nil {
		t.Fatalf("expected s3 without bucket to fail")
	}
	if _, err := Open(ctx, Config{Driver: "tape"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestReadAllAndWriteJSON(t *testing.T) {
	ctx := context.Background()
	for name, s := range map[string]Store{"memory": NewMemory(), "s3": NewMockS3ForTests()} {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadAll(ctx, s, "animalsData"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected not found, got %v", err)
			}
			if _, err := WriteJSON(ctx, s, "animalsData", []byte(`{"animals":[]}`)); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := WriteJSON(ctx, s, "animalsData", []byte(`{"animals":[{"id":1}]}`)); err != nil {
				t.Fatalf("rewrite: %v", err)
			}
			got, err := ReadAll(ctx, s, "animalsData")
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(got) != `{"animals":[{"id":1}]}` {
				t.Fatalf("unexpected payload %s", got)
			}
		})
	}
}
