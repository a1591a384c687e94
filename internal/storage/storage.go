package storage

import (
	"context"
	"errors"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// ObjectStore holds whole-object snapshots. Objects are small enough to be
// read and written in one piece.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) (ObjectInfo, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	Ping(ctx context.Context) error
}
