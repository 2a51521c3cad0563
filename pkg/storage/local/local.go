// Package local implements the local filesystem storage adapter.
//
// Objects live at {basePath}/{key}. Metadata is kept in a YAML sidecar at
// {basePath}/.meta/{key}.yaml.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yi-nology/mediaedge/pkg/storage/object"
)

const metaDir = ".meta"

// ErrInvalidKey is returned for keys that would resolve outside the base path.
var ErrInvalidKey = errors.New("invalid object key")

// Storage implements the storage.Storage interface using local filesystem.
type Storage struct {
	basePath string
}

// New creates a new local storage adapter.
// basePath is the root directory for storing objects (e.g., "data/objects").
func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "data/objects"
	}

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	return &Storage{basePath: basePath}, nil
}

// PutObject writes an object and its metadata sidecar.
func (s *Storage) PutObject(ctx context.Context, key string, data io.Reader, size int64, meta object.Meta) error {
	fullPath, err := s.keyToPath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		os.Remove(fullPath)
		return fmt.Errorf("write file: %w", err)
	}

	if err := s.writeMeta(key, meta); err != nil {
		os.Remove(fullPath)
		return err
	}
	return nil
}

// GetObject opens an object. Directories are not objects.
func (s *Storage) GetObject(ctx context.Context, key string) (*object.Object, error) {
	fullPath, err := s.keyToPath(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, object.ErrNotFound)
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, object.ErrNotFound)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s: %w", key, object.ErrNotFound)
	}

	meta, err := s.readMeta(key)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &object.Object{Body: f, ContentType: meta.ContentType, Size: info.Size()}, nil
}

// DeleteObject removes an object and its sidecar.
func (s *Storage) DeleteObject(ctx context.Context, key string) error {
	fullPath, err := s.keyToPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete file: %w", err)
	}

	metaPath, _ := s.metaPath(key)
	if err := os.Remove(metaPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete metadata: %w", err)
	}
	return nil
}

// ObjectExists checks if a regular file exists under key.
func (s *Storage) ObjectExists(ctx context.Context, key string) (bool, error) {
	fullPath, err := s.keyToPath(key)
	if err != nil {
		return false, nil
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat file: %w", err)
	}
	return !info.IsDir(), nil
}

// Type returns "local" as the storage type identifier.
func (s *Storage) Type() string {
	return "local"
}

// BasePath returns the base path of the storage.
func (s *Storage) BasePath() string {
	return s.basePath
}

// keyToPath converts an object key to a full filesystem path. Keys that
// escape the base path or touch the metadata directory are rejected.
func (s *Storage) keyToPath(key string) (string, error) {
	rel := filepath.FromSlash(strings.TrimPrefix(key, "/"))
	if rel == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	clean := filepath.Clean(rel)
	if clean == metaDir || strings.HasPrefix(clean, metaDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.basePath, clean), nil
}

func (s *Storage) metaPath(key string) (string, error) {
	fullPath, err := s.keyToPath(key)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(s.basePath, fullPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, metaDir, rel+".yaml"), nil
}

func (s *Storage) writeMeta(key string, meta object.Meta) error {
	path, err := s.metaPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metadata directory: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// readMeta loads the sidecar. Objects placed on disk by hand have none,
// which yields empty metadata.
func (s *Storage) readMeta(key string) (object.Meta, error) {
	var meta object.Meta

	path, err := s.metaPath(key)
	if err != nil {
		return meta, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return meta, nil
		}
		return meta, fmt.Errorf("read metadata: %w", err)
	}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("parse metadata %s: %w", path, err)
	}
	return meta, nil
}
