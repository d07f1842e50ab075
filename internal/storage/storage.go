package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrDisabled is returned when no bucket is configured.
var ErrDisabled = errors.New("object storage not configured")

// Object describes a blob to upload.
type Object struct {
	Key         string
	Body        io.Reader
	Size        int64
	ContentType string
}

// Service stores post cover images in remote object storage.
type Service interface {
	Upload(ctx context.Context, obj Object) (string, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}
