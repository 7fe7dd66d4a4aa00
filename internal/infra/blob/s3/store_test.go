package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"shelterdb/internal/blob/core"
)

func TestMockStoreLifecycle(t *testing.T) { //nolint:cyclop
	ctx := context.Background()
	s := NewMockForTests()
	if s.Driver() != core.DriverS3 || s.Bucket() != "mock-bucket" {
		t.Fatalf("unexpected driver/bucket %s %s", s.Driver(), s.Bucket())
	}
	if _, err := s.Put(ctx, "data/animals.json", strings.NewReader(`{"animals":[]}`), core.PutOptions{ContentType: "application/json"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "data/animals.json", strings.NewReader("dup"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected exists, got %v", err)
	}
	if _, err := s.Put(ctx, "data/animals.json", strings.NewReader(`{"animals":[{"id":1}]}`), core.PutOptions{Overwrite: true, ContentType: "application/json"}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	info, rc, err := s.Get(ctx, "data/animals.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"animals":[{"id":1}]}` {
		t.Fatalf("unexpected body %q", body)
	}
	if info.ContentType != "application/json" {
		t.Fatalf("unexpected content type %q", info.ContentType)
	}
	if _, err := s.Put(ctx, "data/rooms.json", strings.NewReader(`{"rooms":[]}`), core.PutOptions{}); err != nil {
		t.Fatalf("put rooms: %v", err)
	}
	list, err := s.List(ctx, "data/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "data/animals.json" || list[1].Key != "data/rooms.json" {
		t.Fatalf("unexpected list %+v", list)
	}
	url, err := s.PresignURL(ctx, "data/animals.json", core.SignedURLOptions{})
	if err != nil || !strings.Contains(url, "data/animals.json") {
		t.Fatalf("presign: %v %s", err, url)
	}
	if _, err := s.PresignURL(ctx, "data/animals.json", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported presign method, got %v", err)
	}
	ok, err := s.Delete(ctx, "data/animals.json")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = s.Delete(ctx, "data/animals.json")
	if err != nil || ok {
		t.Fatalf("second delete should report false: %v %v", ok, err)
	}
	if _, err := s.Head(ctx, "data/animals.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on head, got %v", err)
	}
	if _, _, err := s.Get(ctx, "data/animals.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on get, got %v", err)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("SHELTER_BLOB_S3_BUCKET", "")
	if _, err := ConfigFromEnv(); err == nil {
		t.Fatalf("expected missing bucket error")
	}
	t.Setenv("SHELTER_BLOB_S3_BUCKET", "shelter")
	t.Setenv("SHELTER_BLOB_S3_REGION", "eu-central-1")
	t.Setenv("SHELTER_BLOB_S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("SHELTER_BLOB_S3_PATH_STYLE", "TRUE")
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.Bucket != "shelter" || cfg.Region != "eu-central-1" || !cfg.PathStyle || cfg.Endpoint != "http://localhost:9000" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
	s, err := New(context.Background(), Config{Bucket: "b", Endpoint: "http://localhost:9000", PathStyle: true, AccessKeyID: "a", SecretAccessKey: "s"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.baseURL == nil || s.baseURL.Host != "localhost:9000" {
		t.Fatalf("expected base url parsed, got %v", s.baseURL)
	}
}
