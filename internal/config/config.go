// Package config resolves shelterdb settings from defaults, an optional YAML
// file and SHELTER_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"shelterdb/internal/blob"
	"shelterdb/internal/fixture"
	"shelterdb/internal/persistence"
	"shelterdb/pkg/domain"
)

// EnvConfigPath names the variable holding the YAML config path.
const EnvConfigPath = "SHELTER_CONFIG"

// Config holds all shelterdb settings.
type Config struct {
	Storage  StorageConfig `yaml:"storage"`
	Fixtures FixtureConfig `yaml:"fixtures"`
	Blob     BlobConfig    `yaml:"blob"`
	HTTP     HTTPConfig    `yaml:"http"`
	Watch    bool          `yaml:"watch"`
	// OverlayAuthoritative lists collections whose non-empty overlay replaces
	// the fixture instead of being merged with it.
	OverlayAuthoritative []string  `yaml:"overlay_authoritative"`
	Logging              LogConfig `yaml:"logging"`
}

// StorageConfig selects the overlay key-value backend.
type StorageConfig struct {
	Driver      string `yaml:"driver"` // memory, sqlite, postgres, blob
	QuotaBytes  int64  `yaml:"quota_bytes"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	BlobPrefix  string `yaml:"blob_prefix"`
}

// FixtureConfig selects where fixture documents come from.
type FixtureConfig struct {
	Driver string `yaml:"driver"` // embedded, blob, http
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

// BlobConfig selects the blob backend shared by blob fixtures and the blob
// storage driver.
type BlobConfig struct {
	Driver string   `yaml:"driver"` // fs, s3, memory
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

// S3Config mirrors the S3 blob settings.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver:      string(persistence.DriverSQLite),
			SQLitePath:  "./shelter.db",
			PostgresDSN: "postgres://localhost/shelter?sslmode=disable",
			BlobPrefix:  "overlay/",
		},
		Fixtures: FixtureConfig{
			Driver: string(fixture.DriverEmbedded),
			Prefix: fixture.DefaultPrefix,
		},
		Blob: BlobConfig{
			Driver: string(blob.DriverFilesystem),
			FSRoot: "./blobdata",
		},
		HTTP:    HTTPConfig{Addr: ":8080"},
		Logging: LogConfig{Level: "info"},
	}
}

// Load reads path (or $SHELTER_CONFIG when path is empty) over the defaults
// and applies environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	str := map[string]*string{
		"SHELTER_KV_DRIVER":        &c.Storage.Driver,
		"SHELTER_SQLITE_PATH":      &c.Storage.SQLitePath,
		"SHELTER_POSTGRES_DSN":     &c.Storage.PostgresDSN,
		"SHELTER_KV_BLOB_PREFIX":   &c.Storage.BlobPrefix,
		"SHELTER_FIXTURE_DRIVER":   &c.Fixtures.Driver,
		"SHELTER_FIXTURE_URL":      &c.Fixtures.URL,
		"SHELTER_FIXTURE_PREFIX":   &c.Fixtures.Prefix,
		"SHELTER_BLOB_DRIVER":      &c.Blob.Driver,
		"SHELTER_BLOB_FS_ROOT":     &c.Blob.FSRoot,
		"SHELTER_BLOB_S3_BUCKET":   &c.Blob.S3.Bucket,
		"SHELTER_BLOB_S3_REGION":   &c.Blob.S3.Region,
		"SHELTER_BLOB_S3_ENDPOINT": &c.Blob.S3.Endpoint,
		"SHELTER_HTTP_ADDR":        &c.HTTP.Addr,
		"SHELTER_LOG_LEVEL":        &c.Logging.Level,
	}
	for env, dst := range str {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("SHELTER_KV_QUOTA_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SHELTER_KV_QUOTA_BYTES: %w", err)
		}
		c.Storage.QuotaBytes = n
	}
	for env, dst := range map[string]*bool{
		"SHELTER_BLOB_S3_PATH_STYLE": &c.Blob.S3.PathStyle,
		"SHELTER_WATCH":              &c.Watch,
	} {
		if v := os.Getenv(env); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", env, err)
			}
			*dst = b
		}
	}
	if v := os.Getenv("SHELTER_OVERLAY_AUTHORITATIVE"); v != "" {
		c.OverlayAuthoritative = splitList(v)
	}
	return nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch persistence.Driver(c.Storage.Driver) {
	case persistence.DriverMemory, persistence.DriverSQLite, persistence.DriverPostgres, persistence.DriverBlob:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch fixture.Driver(c.Fixtures.Driver) {
	case fixture.DriverEmbedded, fixture.DriverBlob:
	case fixture.DriverHTTP:
		if c.Fixtures.URL == "" {
			return fmt.Errorf("fixture driver http requires a url")
		}
	default:
		return fmt.Errorf("unknown fixture driver %q", c.Fixtures.Driver)
	}
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			return fmt.Errorf("blob driver s3 requires a bucket")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	if c.Storage.QuotaBytes < 0 {
		return fmt.Errorf("storage quota must not be negative")
	}
	for _, name := range c.OverlayAuthoritative {
		if _, ok := domain.ParseCollection(name); !ok {
			return fmt.Errorf("overlay_authoritative: unknown collection %q", name)
		}
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// PersistenceConfig converts the storage section.
func (c *Config) PersistenceConfig() persistence.Config {
	return persistence.Config{
		Driver:      persistence.Driver(c.Storage.Driver),
		QuotaBytes:  c.Storage.QuotaBytes,
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
		BlobPrefix:  c.Storage.BlobPrefix,
	}
}

// FixtureConfig converts the fixtures section.
func (c *Config) FixtureConfig() fixture.Config {
	return fixture.Config{
		Driver: fixture.Driver(c.Fixtures.Driver),
		URL:    c.Fixtures.URL,
		Prefix: c.Fixtures.Prefix,
	}
}

// BlobConfig converts the blob section.
func (c *Config) BlobConfig() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.Blob.Driver),
		FSRoot: c.Blob.FSRoot,
		S3: blob.S3Config{
			Bucket:    c.Blob.S3.Bucket,
			Region:    c.Blob.S3.Region,
			Endpoint:  c.Blob.S3.Endpoint,
			PathStyle: c.Blob.S3.PathStyle,
		},
	}
}

// NeedsBlob reports whether any configured component reads the blob store.
func (c *Config) NeedsBlob() bool {
	return c.Storage.Driver == string(persistence.DriverBlob) || c.Fixtures.Driver == string(fixture.DriverBlob) || c.Watch
}

// AuthoritativeCollections resolves OverlayAuthoritative into collections.
func (c *Config) AuthoritativeCollections() []domain.Collection {
	out := make([]domain.Collection, 0, len(c.OverlayAuthoritative))
	for _, name := range c.OverlayAuthoritative {
		if col, ok := domain.ParseCollection(name); ok {
			out = append(out, col)
		}
	}
	return out
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
