package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yi-nology/mediaedge/pkg/storage"
)

// Config captures service level configuration loaded from config.yaml and
// the process environment.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Edge     EdgeConfig     `yaml:"edge"`
	Storage  StorageConfig  `yaml:"storage"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Database DatabaseConfig `yaml:"database"`
	CORS     CORSConfig     `yaml:"cors"`
	Admin    AdminConfig    `yaml:"admin"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig defines HTTP server options.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LogConfig selects the hlog level: trace, debug, info, notice, warn, error or fatal.
type LogConfig struct {
	Level string `yaml:"level"`
}

// EdgeConfig holds the transformation policy.
type EdgeConfig struct {
	// MaxImageSize is the largest derivative returned inline, in bytes.
	// Zero or negative disables the limit.
	MaxImageSize int64 `yaml:"max_image_size"`
	// CacheTTL is the Cache-Control value written with derivatives and
	// sent with inline derivative responses.
	CacheTTL string `yaml:"cache_ttl"`
}

// StorageConfig holds the original store and the optional derivative store.
type StorageConfig struct {
	Original   storage.Config `yaml:"original"`
	Derivative storage.Config `yaml:"derivative"`
}

// LedgerConfig toggles the derivative ledger kept in Database.
type LedgerConfig struct {
	Enabled bool `yaml:"enabled"`
}

// CORSConfig defines CORS middleware settings.
type CORSConfig struct {
	AllowOrigin      string `yaml:"allow_origin"`
	AllowMethods     string `yaml:"allow_methods"`
	AllowHeaders     string `yaml:"allow_headers"`
	AllowCredentials bool   `yaml:"allow_credentials"`
}

// AdminConfig guards the admin routes. An empty token disables them.
type AdminConfig struct {
	Token string `yaml:"token"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DatabaseConfig defines the database backend configuration.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
	Pool     PoolConfig     `yaml:"pool"`
}

// PoolConfig sizes the connection pool. Zero values fall back to a pool
// sized for a single-request function instance.
type PoolConfig struct {
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// SQLiteConfig contains SQLite specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// MySQLConfig contains MySQL specific connection details.
type MySQLConfig struct {
	DSN string `yaml:"dsn"`
}

// PostgresConfig contains PostgreSQL specific connection details.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// Environment variables read on top of the YAML file. The camelCase names
// are the ones the function host provides.
const (
	EnvOriginalBucket    = "originalImageBucketName"
	EnvDerivativeBucket  = "transformedImageBucketName"
	EnvCacheTTL          = "transformedImageCacheTTL"
	EnvMaxImageSize      = "maxImageSize"
	EnvServerAddress     = "MEDIAEDGE_SERVER_ADDRESS"
	EnvLogLevel          = "MEDIAEDGE_LOG_LEVEL"
	EnvAdminToken        = "MEDIAEDGE_ADMIN_TOKEN"
	EnvLedgerEnabled     = "MEDIAEDGE_LEDGER_ENABLED"
	EnvDatabaseDriver    = "MEDIAEDGE_DATABASE_DRIVER"
	EnvDatabaseDSN       = "MEDIAEDGE_DATABASE_DSN"
	EnvStorageEndpoint   = "MEDIAEDGE_STORAGE_ENDPOINT"
	EnvStoragePathStyle  = "MEDIAEDGE_STORAGE_PATH_STYLE"
	envFile              = ".env"
	defaultCacheTTL      = "max-age=31622400"
	defaultMetricsPath   = "/metrics"
	defaultServerAddress = ":8080"
)

// Load reads a YAML configuration file from the provided path, then applies
// environment overrides. It searches in the current working directory first,
// then next to the binary executable. A missing file is not an error.
func Load(name string) (*Config, error) {
	cfg, err := loadFile(name)
	if err != nil {
		return nil, err
	}

	// A .env file is optional; variables already set in the process win.
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not read %s: %v", envFile, err)
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func loadFile(name string) (*Config, error) {
	configPath := findConfigFile(name)
	if configPath == "" {
		log.Printf("Warning: config file %q not found, using defaults", name)
		return defaultConfig(), nil
	}

	log.Printf("Loading config from: %s", configPath)
	f, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	var parsed Config
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&parsed)
	return &parsed, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address: defaultServerAddress,
		},
		Log: LogConfig{
			Level: "info",
		},
		Edge: EdgeConfig{
			CacheTTL: defaultCacheTTL,
		},
		Storage: StorageConfig{
			Original: storage.Config{
				Type:  storage.TypeLocal,
				Local: storage.LocalConfig{BasePath: "data/originals"},
			},
			Derivative: storage.Config{
				Type: storage.TypeNone,
			},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path: "data/mediaedge.db",
			},
		},
		CORS: CORSConfig{
			AllowOrigin:      "*",
			AllowMethods:     "GET,OPTIONS",
			AllowHeaders:     "*",
			AllowCredentials: false,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    defaultMetricsPath,
		},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultServerAddress
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Edge.CacheTTL == "" {
		cfg.Edge.CacheTTL = defaultCacheTTL
	}
	if cfg.Storage.Original.Type == "" {
		cfg.Storage.Original.Type = storage.TypeLocal
	}
	if cfg.Storage.Original.Type == storage.TypeLocal && cfg.Storage.Original.Local.BasePath == "" {
		cfg.Storage.Original.Local.BasePath = "data/originals"
	}
	if cfg.Storage.Derivative.Type == "" {
		cfg.Storage.Derivative.Type = storage.TypeNone
	}
	if cfg.Storage.Derivative.Type == storage.TypeLocal && cfg.Storage.Derivative.Local.BasePath == "" {
		cfg.Storage.Derivative.Local.BasePath = "data/derivatives"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "data/mediaedge.db"
	}
	if cfg.CORS.AllowMethods == "" {
		cfg.CORS.AllowMethods = "GET,OPTIONS"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaultMetricsPath
	}
}

// applyEnv overlays environment variables. lookup is os.LookupEnv outside tests.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvOriginalBucket); ok {
		setBucket(&cfg.Storage.Original, v)
	}
	if v, ok := get(EnvDerivativeBucket); ok {
		setBucket(&cfg.Storage.Derivative, v)
	}
	if v, ok := get(EnvStorageEndpoint); ok {
		cfg.Storage.Original.S3.Endpoint = v
		cfg.Storage.Derivative.S3.Endpoint = v
	}
	if v, ok := get(EnvStoragePathStyle); ok {
		pathStyle, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvStoragePathStyle, err)
		}
		cfg.Storage.Original.S3.PathStyle = pathStyle
		cfg.Storage.Derivative.S3.PathStyle = pathStyle
	}
	if v, ok := get(EnvCacheTTL); ok {
		cfg.Edge.CacheTTL = v
	}
	if v, ok := get(EnvMaxImageSize); ok {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvMaxImageSize, err)
		}
		cfg.Edge.MaxImageSize = size
	}
	if v, ok := get(EnvServerAddress); ok {
		cfg.Server.Address = v
	}
	if v, ok := get(EnvLogLevel); ok {
		cfg.Log.Level = v
	}
	if v, ok := get(EnvAdminToken); ok {
		cfg.Admin.Token = v
	}
	if v, ok := get(EnvLedgerEnabled); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvLedgerEnabled, err)
		}
		cfg.Ledger.Enabled = enabled
	}
	if v, ok := get(EnvDatabaseDriver); ok {
		cfg.Database.Driver = v
	}
	if v, ok := get(EnvDatabaseDSN); ok {
		switch strings.ToLower(cfg.Database.Driver) {
		case "mysql":
			cfg.Database.MySQL.DSN = v
		case "postgres", "postgresql":
			cfg.Database.Postgres.DSN = v
		default:
			cfg.Database.SQLite.Path = v
		}
	}
	return nil
}

// setBucket points a store at bucket. MinIO stores keep their type; any
// other store becomes an S3 store.
func setBucket(c *storage.Config, bucket string) {
	if c.Type == storage.TypeMinIO {
		c.MinIO.Bucket = bucket
		return
	}
	c.Type = storage.TypeS3
	c.S3.Bucket = bucket
}

// findConfigFile searches for a config file in the current directory first,
// then next to the binary executable. Returns the full path or empty string.
func findConfigFile(name string) string {
	if _, err := os.Stat(name); err == nil {
		abs, _ := filepath.Abs(name)
		return abs
	}

	exe, err := os.Executable()
	if err == nil {
		candidate := filepath.Join(filepath.Dir(exe), name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}
