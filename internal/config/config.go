package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Metadata MetadataConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port               int           `envconfig:"PORT" default:"10000"`
	PublicBaseURL      string        `envconfig:"PUBLIC_BASE_URL"`
	FrontendDir        string        `envconfig:"FRONTEND_DIR"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// UploadConfig holds upload limits
type UploadConfig struct {
	MaxSize       int64 `envconfig:"MAX_UPLOAD_SIZE" default:"104857600"`
	ProbeDuration bool  `envconfig:"PROBE_DURATION" default:"false"`
}

// MetadataConfig selects and locates the metadata store
type MetadataConfig struct {
	Backend string `envconfig:"METADATA_BACKEND" default:"json"`
	Path    string `envconfig:"METADATA_PATH" default:"./data/videos.json"`
	DBPath  string `envconfig:"DB_PATH" default:"./data/videos.db"`
}

// StorageConfig selects and configures the blob store
type StorageConfig struct {
	Backend     string `envconfig:"STORAGE_BACKEND" default:"local"`
	UploadDir   string `envconfig:"UPLOAD_DIR" default:"./uploads"`
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"videos"`
	S3UseSSL    bool   `envconfig:"S3_USE_SSL" default:"true"`
	S3PublicURL string `envconfig:"S3_PUBLIC_URL"`
}

// AuthConfig holds the static token table
type AuthConfig struct {
	Tokens string `envconfig:"AUTH_TOKENS"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg.Server); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Upload); err != nil {
		return nil, fmt.Errorf("failed to load upload config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Metadata); err != nil {
		return nil, fmt.Errorf("failed to load metadata config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Storage); err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Auth); err != nil {
		return nil, fmt.Errorf("failed to load auth config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to load log config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if c.Upload.MaxSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}
	switch c.Metadata.Backend {
	case "json":
		if c.Metadata.Path == "" {
			return fmt.Errorf("METADATA_PATH is required for the json backend")
		}
	case "sqlite":
		if c.Metadata.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("METADATA_BACKEND must be json or sqlite, got %q", c.Metadata.Backend)
	}
	switch c.Storage.Backend {
	case "local":
		if c.Storage.UploadDir == "" {
			return fmt.Errorf("UPLOAD_DIR is required for the local backend")
		}
	case "s3":
		if c.Storage.S3Endpoint == "" || c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3_ENDPOINT and S3_BUCKET are required for the s3 backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be local or s3, got %q", c.Storage.Backend)
	}
	return nil
}

// Addr returns the listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
