package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestApplyEnv_Overrides(t *testing.T) {
	t.Setenv(EnvHarborPath, "/env/harbor")
	t.Setenv(EnvProjectDir, "/env/project")
	t.Setenv("BLAZE4HARBOR_STRUCTURED_BACKEND", "lode")
	t.Setenv("BLAZE4HARBOR_DATASET", "env_ds")
	t.Setenv("BLAZE4HARBOR_TABLE", "env_table")
	t.Setenv("BLAZE4HARBOR_SCHEMA_VERSION", "1")
	t.Setenv("BLAZE4HARBOR_BUCKET", "env-bucket")
	t.Setenv("BLAZE4HARBOR_BLOB_CREATE_BUCKET", "true")
	t.Setenv("BLAZE4HARBOR_LOG_LEVEL", "warn")
	t.Setenv("BLAZE4HARBOR_WEBHOOK_URL", "https://hooks.example.com/env")

	cfg := &Config{
		HarborPath: "/file/harbor",
		Structured: StructuredConfig{Namespace: "file_ds", Location: "EU"},
	}
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}

	assertEqual(t, "harbor_path", cfg.HarborPath, "/env/harbor")
	assertEqual(t, "project_dir", cfg.ProjectDir, "/env/project")
	assertEqual(t, "structured.backend", cfg.Structured.Backend, "lode")
	assertEqual(t, "structured.namespace", cfg.Structured.Namespace, "env_ds")
	assertEqual(t, "structured.collection", cfg.Structured.Collection, "env_table")
	assertEqual(t, "structured.location", cfg.Structured.Location, "EU")
	assertEqual(t, "blob.bucket", cfg.Blob.Bucket, "env-bucket")
	assertEqual(t, "log.level", cfg.Log.Level, "warn")
	assertEqual(t, "notify.webhook.url", cfg.Notify.Webhook.URL, "https://hooks.example.com/env")
	if cfg.Structured.SchemaVersion != 1 {
		t.Errorf("schema_version = %d, want 1", cfg.Structured.SchemaVersion)
	}
	if !cfg.Blob.CreateBucket {
		t.Error("expected blob.create_bucket=true")
	}
}

func TestApplyEnv_EmptyValueDoesNotOverride(t *testing.T) {
	t.Setenv("BLAZE4HARBOR_BUCKET", "")

	cfg := &Config{Blob: BlobConfig{Bucket: "file-bucket"}}
	if err := ApplyEnv(cfg); err != nil {
		t.Fatal(err)
	}
	assertEqual(t, "blob.bucket", cfg.Blob.Bucket, "file-bucket")
}

func TestApplyEnv_MalformedValues(t *testing.T) {
	t.Setenv("BLAZE4HARBOR_SCHEMA_VERSION", "two")
	t.Setenv("BLAZE4HARBOR_BLOB_USE_SSL", "maybe")

	err := ApplyEnv(&Config{})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"BLAZE4HARBOR_SCHEMA_VERSION", "BLAZE4HARBOR_BLOB_USE_SSL"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %s", err, want)
		}
	}
}

func TestValidateEnvironment(t *testing.T) {
	dir := t.TempDir()
	harbor := filepath.Join(dir, "harbor")
	if err := os.WriteFile(harbor, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr []string
	}{
		{"valid", Config{HarborPath: harbor, ProjectDir: dir}, nil},
		{"both missing", Config{}, []string{EnvHarborPath, EnvProjectDir, "export HARBOR_PATH="}},
		{"harbor not found", Config{HarborPath: filepath.Join(dir, "nope"), ProjectDir: dir}, []string{"harbor executable not found"}},
		{"harbor is dir", Config{HarborPath: dir, ProjectDir: dir}, []string{"is a directory"}},
		{"project not found", Config{HarborPath: harbor, ProjectDir: filepath.Join(dir, "nope")}, []string{"project directory not found"}},
		{"project is file", Config{HarborPath: harbor, ProjectDir: harbor}, []string{"not a directory"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateEnvironment()
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Fatalf("ValidateEnvironment() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q missing %q", err, want)
				}
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	cfg := &Config{ProjectDir: "/work", OutputDir: "jobs"}
	if got := cfg.OutputPath(); got != filepath.Join("/work", "jobs") {
		t.Errorf("OutputPath() = %q", got)
	}
	abs := filepath.Join(t.TempDir(), "out")
	cfg.OutputDir = abs
	if got := cfg.OutputPath(); got != abs {
		t.Errorf("OutputPath() = %q, want %q", got, abs)
	}
}

func TestDiscover(t *testing.T) {
	project := t.TempDir()
	t.Setenv(EnvConfig, "")

	if got := Discover("", project); got != "" {
		t.Errorf("Discover() = %q, want none", got)
	}

	local := filepath.Join(project, DefaultFileName)
	if err := os.WriteFile(local, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := Discover("", project); got != local {
		t.Errorf("Discover() = %q, want %q", got, local)
	}

	t.Setenv(EnvConfig, "/etc/b4h.yaml")
	if got := Discover("", project); got != "/etc/b4h.yaml" {
		t.Errorf("Discover() = %q, want env path", got)
	}
	if got := Discover("/explicit.yaml", project); got != "/explicit.yaml" {
		t.Errorf("Discover() = %q, want explicit path", got)
	}
}

func TestResolve_FileThenEnv(t *testing.T) {
	project := t.TempDir()
	if err := os.WriteFile(filepath.Join(project, DefaultFileName), []byte("blob:\n  bucket: file-bucket\n  prefix: p\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvProjectDir, project)
	t.Setenv("BLAZE4HARBOR_BUCKET", "env-bucket")

	cfg, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	assertEqual(t, "blob.bucket", cfg.Blob.Bucket, "env-bucket")
	assertEqual(t, "blob.prefix", cfg.Blob.Prefix, "p")
	assertEqual(t, "project_dir", cfg.ProjectDir, project)
}
