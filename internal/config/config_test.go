package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"shelterdb/internal/blob"
	"shelterdb/internal/fixture"
	"shelterdb/internal/persistence"
	"shelterdb/pkg/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if name, _, _ := strings.Cut(kv, "="); strings.HasPrefix(name, "SHELTER_") {
			t.Setenv(name, "")
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.NeedsBlob() {
		t.Fatalf("default config should not need a blob store")
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "shelter.yaml")
	yaml := `
storage:
  driver: memory
  quota_bytes: 2048
fixtures:
  driver: blob
  prefix: seed/
blob:
  driver: memory
http:
  addr: ":9000"
overlay_authoritative: [news]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHELTER_HTTP_ADDR", ":9100")
	t.Setenv("SHELTER_KV_QUOTA_BYTES", "4096")
	t.Setenv("SHELTER_WATCH", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "memory" || cfg.Storage.QuotaBytes != 4096 {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.HTTP.Addr != ":9100" {
		t.Fatalf("env should win over yaml, got %q", cfg.HTTP.Addr)
	}
	if cfg.Storage.SQLitePath != "./shelter.db" {
		t.Fatalf("unset yaml fields keep defaults, got %q", cfg.Storage.SQLitePath)
	}
	if !cfg.Watch || !cfg.NeedsBlob() {
		t.Fatalf("expected watch enabled and blob needed")
	}
	if got := cfg.AuthoritativeCollections(); len(got) != 1 || got[0] != domain.CollectionNews {
		t.Fatalf("unexpected authoritative collections %v", got)
	}

	pc := cfg.PersistenceConfig()
	if pc.Driver != persistence.DriverMemory || pc.QuotaBytes != 4096 {
		t.Fatalf("unexpected persistence config %+v", pc)
	}
	fc := cfg.FixtureConfig()
	if fc.Driver != fixture.DriverBlob || fc.Prefix != "seed/" {
		t.Fatalf("unexpected fixture config %+v", fc)
	}
	if bc := cfg.BlobConfig(); bc.Driver != blob.DriverMemory {
		t.Fatalf("unexpected blob config %+v", bc)
	}
}

func TestLoadFromEnvPath(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "shelter.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigPath, path)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		yaml string
	}{
		{name: "storage driver", env: map[string]string{"SHELTER_KV_DRIVER": "redis"}},
		{name: "fixture driver", env: map[string]string{"SHELTER_FIXTURE_DRIVER": "ftp"}},
		{name: "http fixtures need url", env: map[string]string{"SHELTER_FIXTURE_DRIVER": "http"}},
		{name: "s3 needs bucket", env: map[string]string{"SHELTER_BLOB_DRIVER": "s3"}},
		{name: "quota not a number", env: map[string]string{"SHELTER_KV_QUOTA_BYTES": "lots"}},
		{name: "watch not a bool", env: map[string]string{"SHELTER_WATCH": "sometimes"}},
		{name: "unknown collection", env: map[string]string{"SHELTER_OVERLAY_AUTHORITATIVE": "animals, cats"}},
		{name: "bad yaml", yaml: "storage: ["},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			path := ""
			if tc.yaml != "" {
				path = filepath.Join(t.TempDir(), "bad.yaml")
				if err := os.WriteFile(path, []byte(tc.yaml), 0o600); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "out.yaml")
	want := Default()
	want.Storage.Driver = "postgres"
	want.OverlayAuthoritative = []string{"rooms"}
	if err := want.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
