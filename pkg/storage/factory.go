package storage

import (
	"fmt"

	"github.com/yi-nology/mediaedge/pkg/storage/local"
	"github.com/yi-nology/mediaedge/pkg/storage/minio"
	"github.com/yi-nology/mediaedge/pkg/storage/s3"
)

// Storage type identifiers.
const (
	TypeNone  = "none"
	TypeLocal = "local"
	TypeS3    = "s3"
	TypeMinIO = "minio"
)

// Config holds storage configuration for one store.
type Config struct {
	Type  string      `yaml:"type"`
	Local LocalConfig `yaml:"local"`
	S3    S3Config    `yaml:"s3"`
	MinIO MinIOConfig `yaml:"minio"`
}

// LocalConfig holds local storage configuration.
type LocalConfig struct {
	BasePath string `yaml:"base_path"`
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`
}

// MinIOConfig holds MinIO storage configuration.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled reports whether the configuration names a usable store.
// A bucket-backed store without a bucket counts as not configured.
func (c Config) Enabled() bool {
	switch c.Type {
	case TypeNone:
		return false
	case TypeS3:
		return c.S3.Bucket != ""
	case TypeMinIO:
		return c.MinIO.Bucket != ""
	default:
		return true
	}
}

// New creates a storage adapter based on configuration.
func New(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", TypeLocal:
		return local.New(cfg.Local.BasePath)

	case TypeS3:
		return s3.New(s3.Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PathStyle: cfg.S3.PathStyle,
		})

	case TypeMinIO:
		return minio.New(minio.Config{
			Endpoint:  cfg.MinIO.Endpoint,
			Region:    cfg.MinIO.Region,
			Bucket:    cfg.MinIO.Bucket,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
		})

	case TypeNone:
		return nil, fmt.Errorf("storage is disabled")

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
