package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the per-directory configuration file name.
const DefaultConfigFile = ".placesdir.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PLACESDIR_"

// Load builds a Config from defaults, the config file, a .env file in the
// working directory and the process environment, in increasing precedence.
// An explicit configPath that does not exist yields ErrConfigNotFound.
func Load(configPath string) (*Config, error) {
	cfg := Default()
	path := FindConfigFile(configPath)
	if configPath != "" && path == "" {
		return nil, fmt.Errorf("%s: %w", configPath, ErrConfigNotFound)
	}
	if path != "" {
		if err := LoadConfigFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile overlays the YAML file at path onto cfg. Keys absent from
// the file keep their current value.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigNotFound
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .placesdir.yaml in the current directory
// 3. Look for placesdir/config.yaml under the XDG config home
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}
	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	candidate := filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// ApplyEnv overlays PLACESDIR_* variables obtained through lookup onto cfg.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"STORAGE_DRIVER":   &cfg.Storage.Driver,
		"STORAGE_KEY":      &cfg.Storage.Key,
		"SQLITE_PATH":      &cfg.Storage.SQLite.Path,
		"POSTGRES_DSN":     &cfg.Storage.Postgres.DSN,
		"BLOB_FS_ROOT":     &cfg.Storage.Blob.FSRoot,
		"BLOB_S3_BUCKET":   &cfg.Storage.Blob.S3.Bucket,
		"BLOB_S3_REGION":   &cfg.Storage.Blob.S3.Region,
		"BLOB_S3_ENDPOINT": &cfg.Storage.Blob.S3.Endpoint,
		"SEED":             &cfg.Seed.Location,
		"HTTP_ADDR":        &cfg.HTTP.Addr,
		"LOG_LEVEL":        &cfg.Log.Level,
		"LOG_FORMAT":       &cfg.Log.Format,
		"TRACE_FILE":       &cfg.Observability.TraceFile,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	bools := map[string]*bool{
		"BLOB_S3_PATH_STYLE": &cfg.Storage.Blob.S3.PathStyle,
		"METRICS_ENABLED":    &cfg.Metrics.Enabled,
	}
	for name, dst := range bools {
		v, ok := lookup(EnvPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
	}
	return nil
}
