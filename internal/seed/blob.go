package seed

import (
	"context"
	"io"

	"placesdir/internal/blob"
)

// Blob reads the seed document from a blob store key.
type Blob struct {
	Store blob.Store
	Key   string
}

func (b Blob) Fetch(ctx context.Context) ([]byte, error) {
	_, rc, err := b.Store.Get(ctx, b.Key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

func (b Blob) Describe() string { return "blob:" + b.Key }
