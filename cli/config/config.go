// Package config resolves blaze4harbor settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Structured store backends.
const (
	StructuredBigQuery = "bigquery"
	StructuredPostgres = "postgres"
	StructuredLode     = "lode"
)

// Blob store backends.
const (
	BlobGCS   = "gcs"
	BlobS3    = "s3"
	BlobMinIO = "minio"
)

// BackendNone disables a publish branch.
const BackendNone = "none"

// Lode storage roots.
const (
	LodeFS = "fs"
	LodeS3 = "s3"
)

// Built-in defaults.
const (
	DefaultStructuredBackend = StructuredBigQuery
	DefaultNamespace         = "tb_results"
	DefaultCollection        = "tb_results_table"
	DefaultLocation          = "US"
	DefaultBlobBackend       = BlobGCS
	DefaultBucket            = "tb-results"
	DefaultOutputDir         = "jobs"
	DefaultLodePath          = "lode"
	// DefaultFileName is looked up in the project directory when no config path is given.
	DefaultFileName = "blaze4harbor.yaml"
)

// Config represents a blaze4harbor.yaml configuration file.
// All values are optional. Environment variables override file values and
// CLI flags override both.
type Config struct {
	// HarborPath is the harbor executable.
	HarborPath string `yaml:"harbor_path"`
	// ProjectDir is the local project directory holding the default output dir.
	ProjectDir string `yaml:"project_dir"`
	// OutputDir is the default harbor output directory, relative to ProjectDir.
	OutputDir string `yaml:"output_dir"`
	// Capture forces a capture strategy ("script" or "pipe"). Empty selects by platform.
	Capture string `yaml:"capture"`
	// DryRun replaces both stores with stubs that only log.
	DryRun     bool             `yaml:"dry_run"`
	Structured StructuredConfig `yaml:"structured"`
	Blob       BlobConfig       `yaml:"blob"`
	Log        LogConfig        `yaml:"log"`
	Notify     NotifyConfig     `yaml:"notify"`
}

// StructuredConfig holds structured store settings.
type StructuredConfig struct {
	Backend       string `yaml:"backend"`
	Namespace     string `yaml:"namespace"`
	Collection    string `yaml:"collection"`
	SchemaVersion int    `yaml:"schema_version"`
	// Project and Location apply to bigquery.
	Project  string `yaml:"project"`
	Location string `yaml:"location"`
	// PostgresURL applies to postgres.
	PostgresURL string `yaml:"postgres_url"`
	// Timeout bounds the connectivity check on open.
	Timeout Duration   `yaml:"timeout"`
	Lode    LodeConfig `yaml:"lode"`
}

// LodeConfig holds lode dataset settings.
type LodeConfig struct {
	// Storage is "fs" (default) or "s3".
	Storage string `yaml:"storage"`
	// Path is a directory for fs, or "bucket/prefix" for s3.
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// BlobConfig holds blob store settings.
type BlobConfig struct {
	Backend string `yaml:"backend"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
	// Region, Endpoint and S3PathStyle apply to s3 and minio.
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
	// AccessKey, SecretKey, UseSSL and CreateBucket apply to minio.
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UseSSL       bool   `yaml:"use_ssl"`
	CreateBucket bool   `yaml:"create_bucket"`
}

// NotifyConfig holds run completion notification targets. Both are optional.
type NotifyConfig struct {
	Webhook WebhookConfig `yaml:"webhook"`
	Redis   RedisConfig   `yaml:"redis"`
}

// Enabled reports whether any notification target is configured.
func (n NotifyConfig) Enabled() bool {
	return n.Webhook.URL != "" || n.Redis.URL != ""
}

// WebhookConfig configures the HTTP POST notifier.
type WebhookConfig struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	Timeout Duration          `yaml:"timeout"`
	Retries int               `yaml:"retries"`
}

// RedisConfig configures the Redis pub/sub notifier.
type RedisConfig struct {
	URL     string   `yaml:"url"`
	Channel string   `yaml:"channel"`
	Timeout Duration `yaml:"timeout"`
	Retries int      `yaml:"retries"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// ApplyDefaults fills every unset value with its built-in default.
func (c *Config) ApplyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	s := &c.Structured
	if s.Backend == "" {
		s.Backend = DefaultStructuredBackend
	}
	if s.Namespace == "" {
		s.Namespace = DefaultNamespace
	}
	if s.Collection == "" {
		s.Collection = DefaultCollection
	}
	if s.Location == "" {
		s.Location = DefaultLocation
	}
	if s.Project == "" {
		s.Project = firstEnv("GOOGLE_CLOUD_PROJECT", "GCLOUD_PROJECT")
	}
	if s.Lode.Storage == "" {
		s.Lode.Storage = LodeFS
	}
	b := &c.Blob
	if b.Backend == "" {
		b.Backend = DefaultBlobBackend
	}
	if b.Bucket == "" {
		b.Bucket = DefaultBucket
	}
}

// Validate checks the publish settings. It does not touch the filesystem;
// see ValidateEnvironment for the wrapped-tool checks.
func (c *Config) Validate() error {
	var errs []error

	switch c.Capture {
	case "", "script", "pipe":
	default:
		errs = append(errs, fmt.Errorf("capture: invalid strategy %q (must be script or pipe)", c.Capture))
	}

	s := c.Structured
	switch s.Backend {
	case BackendNone:
	case StructuredBigQuery:
		if s.Project == "" && !c.DryRun {
			errs = append(errs, errors.New("structured.project is required for bigquery (or set GOOGLE_CLOUD_PROJECT)"))
		}
	case StructuredPostgres:
		if s.PostgresURL == "" && !c.DryRun {
			errs = append(errs, errors.New("structured.postgres_url is required for postgres"))
		}
	case StructuredLode:
		switch s.Lode.Storage {
		case LodeFS:
		case LodeS3:
			if s.Lode.Path == "" && !c.DryRun {
				errs = append(errs, errors.New("structured.lode.path is required for s3 (bucket/prefix)"))
			}
		default:
			errs = append(errs, fmt.Errorf("structured.lode.storage: invalid value %q (must be fs or s3)", s.Lode.Storage))
		}
	default:
		errs = append(errs, fmt.Errorf("structured.backend: invalid value %q (must be bigquery, postgres, lode or none)", s.Backend))
	}
	if s.Backend != BackendNone {
		if s.Namespace == "" {
			errs = append(errs, errors.New("structured.namespace is required"))
		}
		if s.Collection == "" {
			errs = append(errs, errors.New("structured.collection is required"))
		}
		if s.SchemaVersion < 0 {
			errs = append(errs, fmt.Errorf("structured.schema_version must be >= 0, got %d", s.SchemaVersion))
		}
	}

	b := c.Blob
	switch b.Backend {
	case BackendNone:
	case BlobGCS, BlobS3, BlobMinIO:
		if b.Bucket == "" {
			errs = append(errs, errors.New("blob.bucket is required"))
		}
		if strings.Contains(b.Bucket, "/") {
			errs = append(errs, fmt.Errorf("blob.bucket %q must not contain a path; use blob.prefix", b.Bucket))
		}
	default:
		errs = append(errs, fmt.Errorf("blob.backend: invalid value %q (must be gcs, s3, minio or none)", b.Backend))
	}

	n := c.Notify
	if n.Webhook.Retries < 0 {
		errs = append(errs, fmt.Errorf("notify.webhook.retries must be >= 0, got %d", n.Webhook.Retries))
	}
	if n.Redis.Retries < 0 {
		errs = append(errs, fmt.Errorf("notify.redis.retries must be >= 0, got %d", n.Redis.Retries))
	}

	return errors.Join(errs...)
}
