// Package blob is the entry point to blob storage. Callers outside this
// package depend on Store and never import the infra backends directly.
package blob

import (
	"context"
	"fmt"

	"placesdir/internal/blob/core"
	"placesdir/internal/config"
	"placesdir/internal/infra/blob/fs"
	memorystore "placesdir/internal/infra/blob/memory"
	s3store "placesdir/internal/infra/blob/s3"
)

type (
	Driver     = core.Driver
	PutOptions = core.PutOptions
	Info       = core.Info
	Store      = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrNotFound   = core.ErrNotFound
	ErrInvalidKey = core.ErrInvalidKey
)

// Open builds the Store for driver from the blob configuration. An empty
// driver selects the filesystem.
func Open(ctx context.Context, driver string, cfg config.Blob) (Store, error) {
	switch Driver(driver) {
	case DriverFilesystem, "":
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		if cfg.S3.Bucket == "" {
			return nil, config.ErrMissingBucket
		}
		return s3store.New(ctx, s3store.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: blob driver %s", config.ErrUnknownDriver, driver)
	}
}

// NewFilesystem returns a Store keeping objects under root.
func NewFilesystem(root string) (Store, error) { return fs.New(root) }

// NewMemory returns a process-local Store.
func NewMemory() Store { return memorystore.New() }

// NewMockS3ForTests returns an s3 Store served by an in-process fake bucket.
func NewMockS3ForTests() Store { return s3store.NewMock() }
