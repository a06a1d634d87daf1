// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/erazemk/hisa/internal/apperr"
)

// Config holds every runtime setting. Command-line flags override the
// listen address, database path and log file after Load.
type Config struct {
	ListenAddr string

	DBDriver string // sqlite or postgres
	DBPath   string
	DBDSN    string

	LogLevel  string
	LogFile   string
	LogFormat string // text or json

	SearchEnabled       bool
	EmbeddingProvider   string // openai, ollama or hash
	EmbeddingURL        string
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingDimensions int
	SearchMinSimilarity float64
	SearchQueueSize     int

	BlobDriver        string // fs, s3 or memory
	BlobFSRoot        string
	BlobS3Bucket      string
	BlobS3Region      string
	BlobS3Endpoint    string
	BlobS3PathStyle   bool
	BlobS3AccessKeyID string
	BlobS3SecretKey   string
	PhotoMaxDimension int

	MetricsEnabled bool
}

// Load reads .env from the working directory when present, then the
// environment. Values already set in the environment win over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the environment only.
func FromEnv() *Config {
	return &Config{
		ListenAddr: getEnv("HISA_LISTEN_ADDR", ":8080"),

		DBDriver: strings.ToLower(getEnv("HISA_DB_DRIVER", "sqlite")),
		DBPath:   getEnv("HISA_DB_PATH", "hisa.sqlite3"),
		DBDSN:    getEnv("HISA_DB_DSN", ""),

		LogLevel:  strings.ToLower(getEnv("HISA_LOG_LEVEL", "info")),
		LogFile:   getEnv("HISA_LOG_FILE", ""),
		LogFormat: strings.ToLower(getEnv("HISA_LOG_FORMAT", "text")),

		SearchEnabled:       getBool("HISA_SEARCH_ENABLED", false),
		EmbeddingProvider:   strings.ToLower(getEnv("HISA_EMBEDDING_PROVIDER", "hash")),
		EmbeddingURL:        getEnv("HISA_EMBEDDING_URL", ""),
		EmbeddingModel:      getEnv("HISA_EMBEDDING_MODEL", ""),
		EmbeddingAPIKey:     getEnv("HISA_EMBEDDING_API_KEY", ""),
		EmbeddingDimensions: getInt("HISA_EMBEDDING_DIMENSIONS", 256),
		SearchMinSimilarity: getFloat("HISA_SEARCH_MIN_SIMILARITY", 0.3),
		SearchQueueSize:     getInt("HISA_SEARCH_QUEUE", 256),

		BlobDriver:        strings.ToLower(getEnv("HISA_BLOB_DRIVER", "fs")),
		BlobFSRoot:        getEnv("HISA_BLOB_FS_ROOT", "photos"),
		BlobS3Bucket:      getEnv("HISA_BLOB_S3_BUCKET", ""),
		BlobS3Region:      getEnv("HISA_BLOB_S3_REGION", "us-east-1"),
		BlobS3Endpoint:    getEnv("HISA_BLOB_S3_ENDPOINT", ""),
		BlobS3PathStyle:   getBool("HISA_BLOB_S3_PATH_STYLE", false),
		BlobS3AccessKeyID: getEnv("HISA_BLOB_S3_ACCESS_KEY_ID", ""),
		BlobS3SecretKey:   getEnv("HISA_BLOB_S3_SECRET_ACCESS_KEY", ""),
		PhotoMaxDimension: getInt("HISA_PHOTO_MAX_DIMENSION", 1024),

		MetricsEnabled: getBool("HISA_METRICS_ENABLED", true),
	}
}

// Validate checks the settings. Problems with the core (database, logging)
// are returned as the error; problems with optional components are returned
// as ConfigurationErrors so the caller can disable just that component.
func (c *Config) Validate() (optional []*apperr.ConfigurationError, err error) {
	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			return nil, fmt.Errorf("HISA_DB_PATH must be set for sqlite")
		}
	case "postgres":
		if c.DBDSN == "" {
			return nil, fmt.Errorf("HISA_DB_DSN must be set for postgres")
		}
	default:
		return nil, fmt.Errorf("unknown HISA_DB_DRIVER %q", c.DBDriver)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("unknown HISA_LOG_FORMAT %q", c.LogFormat)
	}

	if c.SearchEnabled {
		if e := c.validateSearch(); e != nil {
			optional = append(optional, e)
		}
	}
	if e := c.validateBlob(); e != nil {
		optional = append(optional, e)
	}
	return optional, nil
}

func (c *Config) validateSearch() *apperr.ConfigurationError {
	fail := func(reason string) *apperr.ConfigurationError {
		return &apperr.ConfigurationError{Component: "search", Reason: reason}
	}
	switch c.EmbeddingProvider {
	case "openai":
		if c.EmbeddingAPIKey == "" {
			return fail("HISA_EMBEDDING_API_KEY is required for the openai provider")
		}
	case "ollama":
		if c.EmbeddingModel == "" {
			return fail("HISA_EMBEDDING_MODEL is required for the ollama provider")
		}
	case "hash":
		if c.EmbeddingDimensions <= 0 {
			return fail("HISA_EMBEDDING_DIMENSIONS must be positive")
		}
	default:
		return fail(fmt.Sprintf("unknown embedding provider %q", c.EmbeddingProvider))
	}
	if c.SearchMinSimilarity < 0 || c.SearchMinSimilarity > 1 {
		return fail("HISA_SEARCH_MIN_SIMILARITY must be between 0 and 1")
	}
	if c.SearchQueueSize <= 0 {
		return fail("HISA_SEARCH_QUEUE must be positive")
	}
	return nil
}

func (c *Config) validateBlob() *apperr.ConfigurationError {
	fail := func(reason string) *apperr.ConfigurationError {
		return &apperr.ConfigurationError{Component: "photos", Reason: reason}
	}
	switch c.BlobDriver {
	case "fs":
		if c.BlobFSRoot == "" {
			return fail("HISA_BLOB_FS_ROOT is required for the fs driver")
		}
	case "s3":
		if c.BlobS3Bucket == "" {
			return fail("HISA_BLOB_S3_BUCKET is required for the s3 driver")
		}
		if (c.BlobS3AccessKeyID == "") != (c.BlobS3SecretKey == "") {
			return fail("HISA_BLOB_S3_ACCESS_KEY_ID and HISA_BLOB_S3_SECRET_ACCESS_KEY must be set together")
		}
	case "memory":
	default:
		return fail(fmt.Sprintf("unknown blob driver %q", c.BlobDriver))
	}
	if c.PhotoMaxDimension <= 0 {
		return fail("HISA_PHOTO_MAX_DIMENSION must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	b, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		return defaultVal
	}
	return b
}

func getInt(key string, defaultVal int) int {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return defaultVal
	}
	return n
}

func getFloat(key string, defaultVal float64) float64 {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return defaultVal
	}
	return f
}
