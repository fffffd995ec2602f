package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"placesdir/internal/blob"
	"placesdir/internal/config"
	"placesdir/internal/core"
	plog "placesdir/internal/log"
	"placesdir/internal/seed"
)

// app holds what every store-backed command needs.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *core.Store
	closers []io.Closer
}

// Close releases the slot connection and the trace file.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

// flagOverrides maps persistent flags onto configuration fields.
var flagOverrides = map[string]func(*config.Config, string){
	"storage":      func(c *config.Config, v string) { c.Storage.Driver = v },
	"storage-key":  func(c *config.Config, v string) { c.Storage.Key = v },
	"sqlite-path":  func(c *config.Config, v string) { c.Storage.SQLite.Path = v },
	"postgres-dsn": func(c *config.Config, v string) { c.Storage.Postgres.DSN = v },
	"fs-root":      func(c *config.Config, v string) { c.Storage.Blob.FSRoot = v },
	"s3-bucket":    func(c *config.Config, v string) { c.Storage.Blob.S3.Bucket = v },
	"seed":         func(c *config.Config, v string) { c.Seed.Location = v },
	"log-level":    func(c *config.Config, v string) { c.Log.Level = v },
	"log-format":   func(c *config.Config, v string) { c.Log.Format = v },
	"trace-file":   func(c *config.Config, v string) { c.Observability.TraceFile = v },
}

// loadConfig layers changed command-line flags over config.Load.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	for name, apply := range flagOverrides {
		f := cmd.Flags().Lookup(name)
		if f != nil && f.Changed {
			apply(cfg, f.Value.String())
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := plog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return plog.New(os.Stderr, plog.Options{Level: level, Format: cfg.Log.Format}), nil
}

// openApp loads configuration and opens the store it describes. extra may
// add store options derived from the loaded configuration. Callers must
// Close the returned app.
func openApp(cmd *cobra.Command, extra func(*config.Config) ([]core.Option, error)) (*app, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	slot, err := core.OpenSlot(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open %s slot: %w", cfg.Storage.Driver, err)
	}
	if c, ok := slot.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	var blobs blob.Store
	if strings.HasPrefix(strings.TrimSpace(cfg.Seed.Location), "blob:") {
		if blobs, err = blob.Open(ctx, cfg.Storage.BlobDriver(), cfg.Storage.Blob); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("open seed blob store: %w", err)
		}
	}
	source, err := seed.Open(cfg.Seed.Location, blobs)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	base := []core.Option{
		core.WithLogger(logger),
		core.WithAuditRecorder(logAudit{logger: logger}),
	}
	if cfg.Observability.TraceFile != "" {
		f, err := openTraceFile(cfg.Observability.TraceFile)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, f)
		base = append(base, core.WithTracer(core.NewJSONTracer(f, nil)))
	}
	if extra != nil {
		opts, err := extra(cfg)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		base = append(base, opts...)
	}
	a.store = core.NewStore(slot, source, base...)
	logger.Debug("store opened", "driver", cfg.Storage.Driver, "key", cfg.Storage.Key, "seed", source.Describe())
	return a, nil
}

func openTraceFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // operator-chosen path
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return f, nil
}

// logAudit writes every mutating store operation to the log.
type logAudit struct {
	logger *slog.Logger
}

func (l logAudit) Record(ctx context.Context, e core.AuditEntry) {
	attrs := []any{"operation", e.Operation, "status", string(e.Status)}
	if e.Region != "" {
		attrs = append(attrs, "region", e.Region)
	}
	if e.Number != 0 {
		attrs = append(attrs, "number", e.Number)
	}
	if e.Error != "" {
		attrs = append(attrs, "error", e.Error)
	}
	l.logger.InfoContext(ctx, "audit", attrs...)
}

// withApp opens the app, runs fn and closes the app.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) (err error) {
	a, err := openApp(cmd, nil)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, a)
}
