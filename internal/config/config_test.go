package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	t.Parallel()
	cfg := Default()
	if cfg.Storage.Driver != DriverSQLite || cfg.Storage.Key != "pop_online_places_data_v1" {
		t.Fatalf("unexpected storage defaults %+v", cfg.Storage)
	}
	if !strings.HasSuffix(cfg.Storage.SQLite.Path, filepath.Join(AppName, "placesdir.db")) {
		t.Fatalf("unexpected sqlite path %s", cfg.Storage.SQLite.Path)
	}
	if cfg.Seed.Location != "embedded:" || cfg.HTTP.Addr != ":8080" || cfg.HTTP.RateLimit != 20 || cfg.HTTP.Burst != 40 {
		t.Fatalf("unexpected defaults %+v %+v", cfg.Seed, cfg.HTTP)
	}
	if !cfg.Metrics.Enabled || cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Fatalf("unexpected log/metrics defaults")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "redis" }, ErrUnknownDriver},
		{"s3 without bucket", func(c *Config) { c.Storage.Driver = DriverS3 }, ErrMissingBucket},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = DriverPostgres }, ErrMissingDSN},
		{"blank key", func(c *Config) { c.Storage.Key = "  " }, ErrEmptyKey},
		{"zero rate", func(c *Config) { c.HTTP.RateLimit = 0 }, ErrInvalidRateLimit},
		{"zero burst", func(c *Config) { c.HTTP.Burst = 0 }, ErrInvalidRateLimit},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, ErrInvalidLogFormat},
		{"s3 with bucket", func(c *Config) { c.Storage.Driver = DriverS3; c.Storage.Blob.S3.Bucket = "b" }, nil},
		{"postgres with dsn", func(c *Config) { c.Storage.Driver = DriverPostgres; c.Storage.Postgres.DSN = "postgres://x" }, nil},
		{"memory", func(c *Config) { c.Storage.Driver = DriverMemory }, nil},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestBlobDriver(t *testing.T) {
	t.Parallel()
	for driver, want := range map[string]string{DriverS3: DriverS3, DriverMemory: DriverMemory, DriverFS: DriverFS, DriverSQLite: DriverFS, DriverPostgres: DriverFS} {
		if got := (Storage{Driver: driver}).BlobDriver(); got != want {
			t.Fatalf("%s: expected %s got %s", driver, want, got)
		}
	}
}

func TestLoadConfigFileOverlaysDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "storage:\n  driver: fs\n  blob:\n    fs_root: /tmp/blobs\nhttp:\n  burst: 5\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := Default()
	if err := LoadConfigFile(path, cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != DriverFS || cfg.Storage.Blob.FSRoot != "/tmp/blobs" || cfg.HTTP.Burst != 5 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Storage.Key != DefaultStorageKey || cfg.HTTP.RateLimit != DefaultRateLimit {
		t.Fatalf("defaults lost for keys absent from the file: %+v", cfg)
	}
	if err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"), cfg); !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("storage: [unclosed"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := LoadConfigFile(bad, cfg); err == nil {
		t.Fatalf("expected YAML error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()
	env := map[string]string{
		"PLACESDIR_STORAGE_DRIVER":     "postgres",
		"PLACESDIR_POSTGRES_DSN":       " postgres://db ",
		"PLACESDIR_BLOB_S3_PATH_STYLE": "true",
		"PLACESDIR_METRICS_ENABLED":    "false",
		"PLACESDIR_SEED":               "",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }
	cfg := Default()
	if err := ApplyEnv(cfg, lookup); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Storage.Driver != DriverPostgres || cfg.Storage.Postgres.DSN != "postgres://db" {
		t.Fatalf("env not applied: %+v", cfg.Storage)
	}
	if !cfg.Storage.Blob.S3.PathStyle || cfg.Metrics.Enabled {
		t.Fatalf("bool env not applied")
	}
	if cfg.Seed.Location != DefaultSeedLocation {
		t.Fatalf("blank env must not override, got %q", cfg.Seed.Location)
	}
	env["PLACESDIR_METRICS_ENABLED"] = "maybe"
	if err := ApplyEnv(Default(), lookup); err == nil {
		t.Fatalf("expected bool parse error")
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  driver: fs\n  key: from-file\nlog:\n  level: debug\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PLACESDIR_STORAGE_KEY", "from-env")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Key != "from-env" {
		t.Fatalf("env must beat file, got %s", cfg.Storage.Key)
	}
	if cfg.Storage.Driver != DriverFS || cfg.Log.Level != "debug" {
		t.Fatalf("file must beat defaults: %+v", cfg)
	}
	if cfg.HTTP.Addr != DefaultHTTPAddr {
		t.Fatalf("defaults must survive, got %s", cfg.HTTP.Addr)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}
