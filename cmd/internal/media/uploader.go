package media

import (
	"context"
	"errors"
)

// ErrUpload marks object storage failures. Callers treat it as an
// internal error and must not create partial state after seeing it.
var ErrUpload = errors.New("media: upload failed")

// ErrNoFile is returned when the local path is empty or does not exist.
var ErrNoFile = errors.New("media: no file to upload")

// Uploader stores a local file in object storage and returns its public URL.
//
// Implementations must remove localPath before returning, on success and on
// failure, so the HTTP layer never leaks temp files.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// UploaderFunc adapts a function to the Uploader interface.
type UploaderFunc func(ctx context.Context, localPath string) (string, error)

func (f UploaderFunc) Upload(ctx context.Context, localPath string) (string, error) {
	return f(ctx, localPath)
}
