package storage

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("object not found")

// Object is a stored preview blob.
type Object struct {
	Key       string
	MediaType string
	Size      int64
}

// Store keeps the bytes behind preview references. Deleting a key revokes
// every handle that points at it.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, mediaType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, Object, error)
	Delete(ctx context.Context, key string) error
}
