// Package object holds the types shared by every storage adapter.
package object

import (
	"errors"
	"io"
)

// ErrNotFound is returned by adapters when a key has no object behind it.
var ErrNotFound = errors.New("object not found")

// Object is a stored object opened for reading. Body must be closed by the caller.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Meta is written alongside an object.
type Meta struct {
	ContentType  string `yaml:"content_type"`
	CacheControl string `yaml:"cache_control,omitempty"`
}
