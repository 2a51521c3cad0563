// Package minio implements the storage adapter on top of the MinIO client.
package minio

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yi-nology/mediaedge/pkg/storage/object"
)

// Config holds MinIO storage configuration.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Storage implements the storage.Storage interface using a MinIO backend.
type Storage struct {
	client *minio.Client
	bucket string
}

// New creates a MinIO client for an existing bucket.
func New(cfg Config) (*Storage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Storage{client: client, bucket: cfg.Bucket}, nil
}

// PutObject streams data to MinIO under key. size may be -1 when unknown.
func (s *Storage) PutObject(ctx context.Context, key string, data io.Reader, size int64, meta object.Meta) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, data, size, minio.PutObjectOptions{
		ContentType:  meta.ContentType,
		CacheControl: meta.CacheControl,
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// GetObject opens an object. MinIO reads lazily, so the object is stat'ed
// up front to surface a missing key before any bytes are consumed.
func (s *Storage) GetObject(ctx context.Context, key string) (*object.Object, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrap("get object", key, err)
	}

	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, s.wrap("stat object", key, err)
	}

	return &object.Object{Body: obj, ContentType: info.ContentType, Size: info.Size}, nil
}

// DeleteObject removes the object at key from the bucket.
func (s *Storage) DeleteObject(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}

// ObjectExists checks if an object exists in the bucket.
func (s *Storage) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object %q: %w", key, err)
	}
	return true, nil
}

// Type returns "minio" as the storage type identifier.
func (s *Storage) Type() string {
	return "minio"
}

func (s *Storage) wrap(op, key string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%s: %w", key, object.ErrNotFound)
	}
	return fmt.Errorf("%s %q: %w", op, key, err)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || (resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket")
}
