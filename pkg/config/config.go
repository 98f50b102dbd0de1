// Package config provides the configuration system for rtstore.
//
// The configuration is organized into logical sections:
//   - Logging: zap level, encoding and outputs
//   - Storage: where flushed columnar files are written (local, s3, gcs)
//   - Metrics: Prometheus namespace for conversion and persistence collectors
//   - Tracing: OpenTelemetry span export
//   - Meta: metadata service snapshot location
//
// Example usage:
//
//	cfg := config.Default()
//	cfg.Storage.Backend = config.BackendS3
//	cfg.Storage.Bucket = "rtstore-data"
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"github.com/rtstore/rtstore/pkg/errors"
	"github.com/rtstore/rtstore/pkg/logger"
)

// Storage backends understood by the filesystem package
const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendGCS   = "gcs"
)

// Config is the top level rtstore configuration
type Config struct {
	// Name identifies the node in logs and metrics
	Name string `yaml:"name"`

	Logging logger.Config `yaml:"logging"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Meta    MetaConfig    `yaml:"meta"`
}

// StorageConfig selects the filesystem that flushed files are written to.
type StorageConfig struct {
	// Backend is one of local, s3 or gcs
	Backend string `yaml:"backend"`
	// Root is the directory (local) or key prefix (s3, gcs) prepended to every path
	Root string `yaml:"root"`
	// Bucket is required for s3 and gcs
	Bucket string `yaml:"bucket"`
	// Region is used by the s3 backend
	Region string `yaml:"region"`
	// Endpoint overrides the s3 endpoint (minio, localstack)
	Endpoint string `yaml:"endpoint"`
	// CredentialsFile is used by the gcs backend
	CredentialsFile string `yaml:"credentials_file"`
	// UploadPartSize is the multipart chunk size for s3 uploads in bytes
	UploadPartSize int64 `yaml:"upload_part_size"`
	// UploadConcurrency bounds parallel part uploads for s3
	UploadConcurrency int `yaml:"upload_concurrency"`
}

// MetricsConfig contains Prometheus settings
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// TracingConfig contains OpenTelemetry settings
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// MetaConfig contains metadata service settings
type MetaConfig struct {
	// SnapshotPath is where the metadata state is persisted between runs
	SnapshotPath string `yaml:"snapshot_path"`
	// SnapshotCompression is a pkg/compression algorithm name
	SnapshotCompression string `yaml:"snapshot_compression"`
}

// Default returns a configuration that writes to the local filesystem
func Default() *Config {
	return &Config{
		Name: "rtstore",
		Logging: logger.Config{
			Level:    "info",
			Encoding: "json",
		},
		Storage: StorageConfig{
			Backend:           BackendLocal,
			Root:              ".",
			UploadPartSize:    5 * 1024 * 1024,
			UploadConcurrency: 4,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "rtstore",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			ServiceName:  "rtstore",
			SamplingRate: 1.0,
		},
		Meta: MetaConfig{
			SnapshotPath:        "rtstore.meta",
			SnapshotCompression: "zstd",
		},
	}
}

// Validate validates the configuration for correctness.
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New(errors.ErrorTypeConfig, "name is required")
	}

	switch c.Storage.Backend {
	case BackendLocal:
	case BackendS3, BackendGCS:
		if c.Storage.Bucket == "" {
			return errors.Newf(errors.ErrorTypeConfig, "storage.bucket is required for backend %s", c.Storage.Backend)
		}
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unsupported storage backend: %q", c.Storage.Backend)
	}

	if c.Storage.UploadPartSize < 0 {
		return errors.New(errors.ErrorTypeConfig, "storage.upload_part_size cannot be negative")
	}
	if c.Storage.UploadConcurrency < 0 {
		return errors.New(errors.ErrorTypeConfig, "storage.upload_concurrency cannot be negative")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return errors.New(errors.ErrorTypeConfig, "tracing.sampling_rate must be within [0, 1]")
	}
	return nil
}
