package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Environment variable names.
const (
	EnvHarborPath = "HARBOR_PATH"
	EnvProjectDir = "BLAZE4HARBOR_LOCAL_PROJECT_DIR"
	EnvConfig     = "BLAZE4HARBOR_CONFIG"
)

// ApplyEnv overrides config values with BLAZE4HARBOR_* environment variables
// that are set. Malformed numeric or boolean values are errors.
func ApplyEnv(c *Config) error {
	setString(&c.HarborPath, EnvHarborPath)
	setString(&c.ProjectDir, EnvProjectDir)
	setString(&c.Capture, "BLAZE4HARBOR_CAPTURE")

	s := &c.Structured
	setString(&s.Backend, "BLAZE4HARBOR_STRUCTURED_BACKEND")
	setString(&s.Project, "BLAZE4HARBOR_PROJECT")
	setString(&s.Namespace, "BLAZE4HARBOR_DATASET")
	setString(&s.Collection, "BLAZE4HARBOR_TABLE")
	setString(&s.Location, "BLAZE4HARBOR_LOCATION")
	setString(&s.PostgresURL, "BLAZE4HARBOR_POSTGRES_URL")
	setString(&s.Lode.Path, "BLAZE4HARBOR_LODE_PATH")

	b := &c.Blob
	setString(&b.Backend, "BLAZE4HARBOR_BLOB_BACKEND")
	setString(&b.Bucket, "BLAZE4HARBOR_BUCKET")
	setString(&b.Prefix, "BLAZE4HARBOR_BLOB_PREFIX")
	setString(&b.Endpoint, "BLAZE4HARBOR_BLOB_ENDPOINT")
	setString(&b.Region, "BLAZE4HARBOR_BLOB_REGION")
	setString(&b.AccessKey, "BLAZE4HARBOR_BLOB_ACCESS_KEY")
	setString(&b.SecretKey, "BLAZE4HARBOR_BLOB_SECRET_KEY")

	setString(&c.Notify.Webhook.URL, "BLAZE4HARBOR_WEBHOOK_URL")
	setString(&c.Notify.Redis.URL, "BLAZE4HARBOR_REDIS_URL")
	setString(&c.Notify.Redis.Channel, "BLAZE4HARBOR_REDIS_CHANNEL")

	setString(&c.Log.Format, "BLAZE4HARBOR_LOG_FORMAT")
	setString(&c.Log.Level, "BLAZE4HARBOR_LOG_LEVEL")

	var errs []error
	var err error
	if s.SchemaVersion, err = Int("BLAZE4HARBOR_SCHEMA_VERSION", s.SchemaVersion); err != nil {
		errs = append(errs, err)
	}
	if b.UseSSL, err = Bool("BLAZE4HARBOR_BLOB_USE_SSL", b.UseSSL); err != nil {
		errs = append(errs, err)
	}
	if b.CreateBucket, err = Bool("BLAZE4HARBOR_BLOB_CREATE_BUCKET", b.CreateBucket); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateEnvironment checks what running harbor requires: the executable
// and the project directory must both be set and exist. Every problem is
// reported in one error with an export hint.
func (c *Config) ValidateEnvironment() error {
	var problems []string

	switch {
	case c.HarborPath == "":
		problems = append(problems, fmt.Sprintf("  %s: Path to the harbor executable", EnvHarborPath))
	default:
		if err := checkExecutable(c.HarborPath); err != nil {
			problems = append(problems, fmt.Sprintf("  %s: %v", EnvHarborPath, err))
		}
	}

	switch {
	case c.ProjectDir == "":
		problems = append(problems, fmt.Sprintf("  %s: Path to the local project directory", EnvProjectDir))
	default:
		info, err := os.Stat(c.ProjectDir)
		switch {
		case err != nil:
			problems = append(problems, fmt.Sprintf("  %s: project directory not found at: %s", EnvProjectDir, c.ProjectDir))
		case !info.IsDir():
			problems = append(problems, fmt.Sprintf("  %s: not a directory: %s", EnvProjectDir, c.ProjectDir))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid environment:\n%s\n\nPlease set them before running, e.g.:\n  export %s=/path/to/harbor\n  export %s=/path/to/blaze4harbor",
		strings.Join(problems, "\n"), EnvHarborPath, EnvProjectDir)
}

// OutputPath returns the absolute default output directory.
func (c *Config) OutputPath() string {
	if filepath.IsAbs(c.OutputDir) {
		return c.OutputDir
	}
	return filepath.Join(c.ProjectDir, c.OutputDir)
}

func checkExecutable(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("harbor executable not found at: %s", p)
	}
	if info.IsDir() {
		return fmt.Errorf("harbor path is a directory: %s", p)
	}
	return nil
}

// String returns the value of key, or def when unset.
func String(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

// Bool parses key as a boolean, or returns def when unset.
func Bool(key string, def bool) (bool, error) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("parse %s: %w", key, err)
		}
		return b, nil
	}
	return def, nil
}

// Int parses key as an integer, or returns def when unset.
func Int(key string, def int) (int, error) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("parse %s: %w", key, err)
		}
		return i, nil
	}
	return def, nil
}

// setString overwrites *dst with key's value when key is set and non-empty.
func setString(dst *string, key string) {
	if v := String(key, ""); v != "" {
		*dst = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
