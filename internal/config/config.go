// Package config holds the runtime configuration of placesdir and the
// layered loading of defaults, YAML file, .env and environment.
package config

import (
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

const (
	// AppName is the application name used for XDG directory paths.
	AppName = "placesdir"

	// DefaultStorageKey is the slot key the browser application used, kept
	// so exported data and existing slots stay interchangeable.
	DefaultStorageKey = "pop_online_places_data_v1"

	// DefaultSeedLocation selects the dataset compiled into the binary.
	DefaultSeedLocation = "embedded:"

	DefaultHTTPAddr  = ":8080"
	DefaultRateLimit = 20.0
	DefaultBurst     = 40
)

// Storage drivers accepted by storage.driver.
const (
	DriverMemory   = "memory"
	DriverFS       = "fs"
	DriverS3       = "s3"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the full runtime configuration.
type Config struct {
	Storage       Storage       `yaml:"storage"`
	Seed          Seed          `yaml:"seed"`
	HTTP          HTTP          `yaml:"http"`
	Log           Log           `yaml:"log"`
	Metrics       Metrics       `yaml:"metrics"`
	Observability Observability `yaml:"observability"`
}

// Storage selects and configures the durable slot backend.
type Storage struct {
	Driver   string   `yaml:"driver"`
	Key      string   `yaml:"key"`
	SQLite   SQLite   `yaml:"sqlite"`
	Postgres Postgres `yaml:"postgres"`
	Blob     Blob     `yaml:"blob"`
}

// SQLite configures the modernc sqlite backend.
type SQLite struct {
	Path string `yaml:"path"`
}

// Postgres configures the pgx backend.
type Postgres struct {
	DSN string `yaml:"dsn"`
}

// Blob configures the fs and s3 blob drivers.
type Blob struct {
	FSRoot string `yaml:"fs_root"`
	S3     S3     `yaml:"s3"`
}

// S3 configures an S3 or MinIO bucket.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Seed configures where the default dataset comes from.
type Seed struct {
	Location string `yaml:"location"`
}

// HTTP configures the API server.
type HTTP struct {
	Addr      string  `yaml:"addr"`
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Metrics toggles the Prometheus recorder and /metrics endpoint.
type Metrics struct {
	Enabled bool `yaml:"enabled"`
}

// Observability configures span export.
type Observability struct {
	TraceFile string `yaml:"trace_file"`
}

// Default returns a Config populated with default values.
func Default() *Config {
	dataDir := filepath.Join(xdg.DataHome, AppName)
	return &Config{
		Storage: Storage{
			Driver: DriverSQLite,
			Key:    DefaultStorageKey,
			SQLite: SQLite{Path: filepath.Join(dataDir, AppName+".db")},
			Blob:   Blob{FSRoot: filepath.Join(dataDir, "blobs"), S3: S3{Region: "us-east-1"}},
		},
		Seed:    Seed{Location: DefaultSeedLocation},
		HTTP:    HTTP{Addr: DefaultHTTPAddr, RateLimit: DefaultRateLimit, Burst: DefaultBurst},
		Log:     Log{Level: "info", Format: "text"},
		Metrics: Metrics{Enabled: true},
	}
}

// BlobDriver returns the blob driver backing the slot or the blob: seed
// scheme. Non-blob slot drivers fall back to the filesystem.
func (s Storage) BlobDriver() string {
	switch s.Driver {
	case DriverS3, DriverMemory:
		return s.Driver
	default:
		return DriverFS
	}
}

// Validate checks the configuration for values no component can run with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverFS, DriverSQLite:
	case DriverS3:
		if strings.TrimSpace(c.Storage.Blob.S3.Bucket) == "" {
			return ErrMissingBucket
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Storage.Postgres.DSN) == "" {
			return ErrMissingDSN
		}
	default:
		return ErrUnknownDriver
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		return ErrEmptyKey
	}
	if c.HTTP.RateLimit <= 0 || c.HTTP.Burst <= 0 {
		return ErrInvalidRateLimit
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return ErrInvalidLogFormat
	}
	return nil
}
