package encoder

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"backpro/internal/storage"
	"backpro/internal/upload"
)

// Payload is an upload ready to be sent inline.
type Payload struct {
	Base64    string
	MediaType string
}

// Error reports a file that could not be read back for encoding, for example
// because its selection was released in the meantime.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type Encoder struct {
	store storage.Store
}

func New(store storage.Store) *Encoder {
	return &Encoder{store: store}
}

// Encode reads the whole file and returns it base64 encoded together with its
// media type. There is no size limit.
func (e *Encoder) Encode(ctx context.Context, f upload.File) (Payload, error) {
	rc, obj, err := e.store.Open(ctx, f.Key)
	if err != nil {
		return Payload{}, &Error{Key: f.Key, Err: err}
	}
	defer rc.Close()

	var sb strings.Builder
	if obj.Size > 0 {
		sb.Grow(base64.StdEncoding.EncodedLen(int(obj.Size)))
	}
	enc := base64.NewEncoder(base64.StdEncoding, &sb)
	if _, err := io.Copy(enc, rc); err != nil {
		return Payload{}, &Error{Key: f.Key, Err: fmt.Errorf("read: %w", err)}
	}
	if err := enc.Close(); err != nil {
		return Payload{}, &Error{Key: f.Key, Err: fmt.Errorf("flush: %w", err)}
	}

	mediaType := f.MediaType
	if mediaType == "" {
		mediaType = obj.MediaType
	}

	return Payload{
		Base64:    sb.String(),
		MediaType: mediaType,
	}, nil
}
