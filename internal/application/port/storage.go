package port

import (
	"context"
	"io"
)

// FileStorage stores uploaded documents under flat relative names
type FileStorage interface {
	// Save streams r into name and returns the bytes written
	Save(ctx context.Context, name string, r io.Reader) (int64, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Exists(ctx context.Context, name string) bool
	Delete(ctx context.Context, name string) error

	// Resolve maps a name to its location on disk, rejecting escapes
	Resolve(name string) (string, error)
}
