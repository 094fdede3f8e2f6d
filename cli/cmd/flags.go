// Package cmd provides CLI commands for the blaze4harbor binary.
package cmd

import "github.com/urfave/cli/v2"

// Global flags, accepted before the harbor arguments or a subcommand.
var (
	// ConfigFlag points at a blaze4harbor.yaml file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "Path to config file (default: $BLAZE4HARBOR_CONFIG or <project>/blaze4harbor.yaml)",
		EnvVars: []string{"BLAZE4HARBOR_CONFIG"},
	}

	// DryRunFlag replaces both stores with in-process stubs that only log.
	DryRunFlag = &cli.BoolFlag{
		Name:  "dry-run",
		Usage: "Log what would be provisioned and uploaded without contacting any store",
	}

	// LogLevelFlag overrides the log level.
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error",
	}

	// LogFormatFlag overrides the log encoding.
	LogFormatFlag = &cli.StringFlag{
		Name:  "log-format",
		Usage: "Log format: console, json",
	}
)

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}
)

// GlobalFlags returns the flags accepted at the top level.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		DryRunFlag,
		LogLevelFlag,
		LogFormatFlag,
		NoColorFlag,
	}
}

// ReadOnlyFlags returns the shared flags for commands that only render output.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
	}
}

// storeFlags returns the per-command store overrides shared by publish.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "structured-backend",
			Usage: "Structured store: bigquery, postgres, lode, none",
		},
		&cli.StringFlag{
			Name:    "namespace",
			Aliases: []string{"dataset"},
			Usage:   "Structured namespace (BigQuery dataset, Postgres schema)",
		},
		&cli.StringFlag{
			Name:    "collection",
			Aliases: []string{"table"},
			Usage:   "Structured collection (table)",
		},
		&cli.StringFlag{
			Name:  "blob-backend",
			Usage: "Blob store: gcs, s3, minio, none",
		},
		&cli.StringFlag{
			Name:  "bucket",
			Usage: "Blob bucket name",
		},
		&cli.StringFlag{
			Name:  "prefix",
			Usage: "Blob key prefix",
		},
	}
}
