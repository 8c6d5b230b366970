package core

import (
	"context"
	"io"
)

var ErrBlobNotFound = NewNotFoundError("file not found")

// BlobStore keeps uploaded files by key, e.g. "imports/<job id>/grades.xlsx".
type BlobStore interface {
	Upload(ctx context.Context, key string, data io.Reader) error
	// Download returns ErrBlobNotFound when nothing is stored under key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
