package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/kewos554321/blaze4harbor/cli/config"
	"github.com/kewos554321/blaze4harbor/log"
	"github.com/kewos554321/blaze4harbor/types"
)

// resolveString returns the flag value when it was set on the command line,
// else the config value.
func resolveString(c *cli.Context, name, cfgVal string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	return cfgVal
}

// resolveBool returns the flag value when it was set on the command line,
// else the config value.
func resolveBool(c *cli.Context, name string, cfgVal bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return cfgVal
}

// resolveInt returns the flag value when it was set on the command line,
// else the config value.
func resolveInt(c *cli.Context, name string, cfgVal int) int {
	if c.IsSet(name) {
		return c.Int(name)
	}
	return cfgVal
}

// loadConfig builds the effective config: file, then environment, then the
// flags defined on c, then defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Resolve(c.String(ConfigFlag.Name))
	if err != nil {
		return nil, err
	}
	applyFlags(c, cfg)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyFlags copies command-line overrides into cfg. Flags not defined on
// the current command are never set and leave cfg untouched.
func applyFlags(c *cli.Context, cfg *config.Config) {
	cfg.DryRun = resolveBool(c, DryRunFlag.Name, cfg.DryRun)
	cfg.Log.Level = resolveString(c, LogLevelFlag.Name, cfg.Log.Level)
	cfg.Log.Format = resolveString(c, LogFormatFlag.Name, cfg.Log.Format)

	s := &cfg.Structured
	s.Backend = resolveString(c, "structured-backend", s.Backend)
	s.Namespace = resolveString(c, "namespace", s.Namespace)
	s.Collection = resolveString(c, "collection", s.Collection)
	s.SchemaVersion = resolveInt(c, "schema-version", s.SchemaVersion)

	b := &cfg.Blob
	b.Backend = resolveString(c, "blob-backend", b.Backend)
	b.Bucket = resolveString(c, "bucket", b.Bucket)
	b.Prefix = resolveString(c, "prefix", b.Prefix)

	if resolveBool(c, "skip-structured", false) {
		s.Backend = config.BackendNone
	}
	if resolveBool(c, "skip-blob", false) {
		b.Backend = config.BackendNone
	}
}

// newLogger creates the run logger from cfg.
func newLogger(meta *types.RunMeta, cfg *config.Config) (*log.Logger, error) {
	opts := log.Options{Format: cfg.Log.Format, Level: cfg.Log.Level}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return log.NewLogger(meta, opts)
}
