// Package storage defines the object store abstraction shared by the
// original and derivative stores. Backends are local filesystem, S3
// (AWS and compatible services) and MinIO.
package storage

import (
	"context"
	"io"

	"github.com/yi-nology/mediaedge/pkg/storage/object"
)

// ErrObjectNotFound is the single not-found sentinel. Every adapter maps its
// native "no such key" condition onto it so callers can use errors.Is.
var ErrObjectNotFound = object.ErrNotFound

type (
	// Object is a stored object opened for reading.
	Object = object.Object
	// ObjectMeta is the metadata written with an object.
	ObjectMeta = object.Meta
)

// Storage defines the interface for object storage operations.
type Storage interface {
	// PutObject writes data under key. size may be -1 when unknown.
	PutObject(ctx context.Context, key string, data io.Reader, size int64, meta ObjectMeta) error

	// GetObject opens the object stored under key.
	// Returns ErrObjectNotFound when the key does not exist.
	GetObject(ctx context.Context, key string) (*Object, error)

	// DeleteObject removes an object. Deleting a missing key is not an error.
	DeleteObject(ctx context.Context, key string) error

	// ObjectExists checks if an object exists in storage.
	ObjectExists(ctx context.Context, key string) (bool, error)

	// Type returns the storage type identifier ("local", "s3" or "minio").
	Type() string
}
