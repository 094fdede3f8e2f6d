package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file, expands environment variables, and
// unmarshals into a Config struct. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	expanded := ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}

	return &cfg, nil
}

// Discover returns the config file to load: explicit if set, else
// $BLAZE4HARBOR_CONFIG, else blaze4harbor.yaml in projectDir when it exists.
// An empty result means no file is used.
func Discover(explicit, projectDir string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	if projectDir == "" {
		return ""
	}
	candidate := filepath.Join(projectDir, DefaultFileName)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}
	return ""
}

// Resolve loads the discovered config file (if any) and applies environment
// overrides. The caller applies CLI flags, then ApplyDefaults.
func Resolve(explicit string) (*Config, error) {
	projectDir := os.Getenv(EnvProjectDir)
	cfg := &Config{}
	if p := Discover(explicit, projectDir); p != "" {
		loaded, err := Load(p)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
