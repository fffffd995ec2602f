package seed

import (
	"context"
	"os"
)

// File reads the seed document from a local path.
type File struct {
	Path string
}

func (f File) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(f.Path) //nolint:gosec // operator-provided seed path
}

func (f File) Describe() string { return "file://" + f.Path }
