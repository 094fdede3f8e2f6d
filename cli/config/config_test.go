package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `harbor_path: /opt/harbor/bin/harbor
project_dir: /work/blaze4harbor
output_dir: runs
capture: pipe

structured:
  backend: postgres
  namespace: bench
  collection: results
  schema_version: 1
  postgres_url: postgres://u:p@localhost:5432/db
  timeout: 3s
  lode:
    storage: s3
    path: my-bucket/prefix
    region: us-east-1
    endpoint: https://example.com
    s3_path_style: true

blob:
  backend: minio
  bucket: artifacts
  prefix: harbor
  endpoint: localhost:9000
  access_key: ak
  secret_key: sk
  use_ssl: true
  create_bucket: true

log:
  format: json
  level: debug

notify:
  webhook:
    url: https://hooks.example.com/runs
    headers:
      Authorization: Bearer token
    timeout: 2s
    retries: 1
  redis:
    url: redis://localhost:6379/0
    channel: bench:done
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assertEqual(t, "harbor_path", cfg.HarborPath, "/opt/harbor/bin/harbor")
	assertEqual(t, "project_dir", cfg.ProjectDir, "/work/blaze4harbor")
	assertEqual(t, "output_dir", cfg.OutputDir, "runs")
	assertEqual(t, "capture", cfg.Capture, "pipe")

	// Structured
	assertEqual(t, "structured.backend", cfg.Structured.Backend, "postgres")
	assertEqual(t, "structured.namespace", cfg.Structured.Namespace, "bench")
	assertEqual(t, "structured.collection", cfg.Structured.Collection, "results")
	assertEqual(t, "structured.postgres_url", cfg.Structured.PostgresURL, "postgres://u:p@localhost:5432/db")
	if cfg.Structured.SchemaVersion != 1 {
		t.Errorf("expected schema_version=1, got %d", cfg.Structured.SchemaVersion)
	}
	if cfg.Structured.Timeout.Duration != 3*time.Second {
		t.Errorf("expected timeout=3s, got %v", cfg.Structured.Timeout.Duration)
	}
	assertEqual(t, "structured.lode.storage", cfg.Structured.Lode.Storage, "s3")
	assertEqual(t, "structured.lode.path", cfg.Structured.Lode.Path, "my-bucket/prefix")
	if !cfg.Structured.Lode.S3PathStyle {
		t.Error("expected structured.lode.s3_path_style=true")
	}

	// Blob
	assertEqual(t, "blob.backend", cfg.Blob.Backend, "minio")
	assertEqual(t, "blob.bucket", cfg.Blob.Bucket, "artifacts")
	assertEqual(t, "blob.prefix", cfg.Blob.Prefix, "harbor")
	assertEqual(t, "blob.endpoint", cfg.Blob.Endpoint, "localhost:9000")
	if !cfg.Blob.UseSSL || !cfg.Blob.CreateBucket {
		t.Error("expected blob.use_ssl and blob.create_bucket")
	}

	assertEqual(t, "log.format", cfg.Log.Format, "json")
	assertEqual(t, "log.level", cfg.Log.Level, "debug")

	// Notify
	assertEqual(t, "notify.webhook.url", cfg.Notify.Webhook.URL, "https://hooks.example.com/runs")
	assertEqual(t, "notify.webhook.headers", cfg.Notify.Webhook.Headers["Authorization"], "Bearer token")
	if cfg.Notify.Webhook.Timeout.Duration != 2*time.Second || cfg.Notify.Webhook.Retries != 1 {
		t.Errorf("unexpected webhook timeout/retries: %v/%d", cfg.Notify.Webhook.Timeout.Duration, cfg.Notify.Webhook.Retries)
	}
	assertEqual(t, "notify.redis.channel", cfg.Notify.Redis.Channel, "bench:done")
	if !cfg.Notify.Enabled() {
		t.Error("expected notify to be enabled")
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	path := writeTemp(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HarborPath != "" {
		t.Errorf("expected empty harbor_path, got %q", cfg.HarborPath)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/blaze4harbor.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "{{invalid yaml")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_BUCKET", "expanded-bucket")

	path := writeTemp(t, "blob:\n  bucket: ${TEST_BUCKET}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "blob.bucket", cfg.Blob.Bucket, "expanded-bucket")
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	yaml := `harbor_path: /bin/harbor
bogus_key: should_fail
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "bogus_key") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_UnknownNestedKeyRejected(t *testing.T) {
	yaml := `blob:
  backend: gcs
  unknown_field: bad
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown nested key, got nil")
	}
	if !strings.Contains(err.Error(), "unknown_field") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_WhitespaceOnlyConfig(t *testing.T) {
	path := writeTemp(t, "   \n  \n  \n")
	if _, err := Load(path); err != nil {
		t.Fatalf("Load failed for whitespace-only config: %v", err)
	}
}

func TestLoad_CommentsOnlyConfig(t *testing.T) {
	path := writeTemp(t, "# This is a comment\n# Another comment\n")
	if _, err := Load(path); err != nil {
		t.Fatalf("Load failed for comments-only config: %v", err)
	}
}

func TestDuration_InvalidFormat(t *testing.T) {
	path := writeTemp(t, "structured:\n  timeout: soon\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "gcp-proj")

	cfg := &Config{}
	cfg.ApplyDefaults()

	assertEqual(t, "output_dir", cfg.OutputDir, DefaultOutputDir)
	assertEqual(t, "structured.backend", cfg.Structured.Backend, StructuredBigQuery)
	assertEqual(t, "structured.namespace", cfg.Structured.Namespace, "tb_results")
	assertEqual(t, "structured.collection", cfg.Structured.Collection, "tb_results_table")
	assertEqual(t, "structured.location", cfg.Structured.Location, "US")
	assertEqual(t, "structured.project", cfg.Structured.Project, "gcp-proj")
	assertEqual(t, "structured.lode.storage", cfg.Structured.Lode.Storage, LodeFS)
	assertEqual(t, "blob.backend", cfg.Blob.Backend, BlobGCS)
	assertEqual(t, "blob.bucket", cfg.Blob.Bucket, "tb-results")

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestApplyDefaults_KeepsSetValues(t *testing.T) {
	cfg := &Config{Structured: StructuredConfig{Namespace: "ns", Project: "p"}, Blob: BlobConfig{Bucket: "b"}}
	cfg.ApplyDefaults()
	assertEqual(t, "namespace", cfg.Structured.Namespace, "ns")
	assertEqual(t, "project", cfg.Structured.Project, "p")
	assertEqual(t, "bucket", cfg.Blob.Bucket, "b")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{Structured: StructuredConfig{Project: "p"}}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"both disabled", func(c *Config) { c.Structured.Backend = BackendNone; c.Blob.Backend = BackendNone }, ""},
		{"bad capture", func(c *Config) { c.Capture = "pty" }, "capture"},
		{"bigquery without project", func(c *Config) { c.Structured.Project = "" }, "structured.project"},
		{"postgres without url", func(c *Config) { c.Structured.Backend = StructuredPostgres }, "postgres_url"},
		{"lode fs", func(c *Config) { c.Structured.Backend = StructuredLode }, ""},
		{"lode s3 without path", func(c *Config) {
			c.Structured.Backend = StructuredLode
			c.Structured.Lode.Storage = LodeS3
		}, "structured.lode.path"},
		{"unknown structured", func(c *Config) { c.Structured.Backend = "mysql" }, "structured.backend"},
		{"negative schema version", func(c *Config) { c.Structured.SchemaVersion = -1 }, "schema_version"},
		{"unknown blob", func(c *Config) { c.Blob.Backend = "azure" }, "blob.backend"},
		{"bucket with path", func(c *Config) { c.Blob.Bucket = "tb-results/jobs" }, "blob.prefix"},
		{"negative webhook retries", func(c *Config) { c.Notify.Webhook.Retries = -1 }, "notify.webhook.retries"},
		{"negative redis retries", func(c *Config) { c.Notify.Redis.Retries = -2 }, "notify.redis.retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := &Config{Structured: StructuredConfig{Backend: "mysql"}, Blob: BlobConfig{Backend: "azure"}}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"structured.backend", "blob.backend"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "blaze4harbor.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
