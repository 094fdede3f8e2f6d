package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/kewos554321/blaze4harbor/cli/render"
	"github.com/kewos554321/blaze4harbor/schema"
	"github.com/kewos554321/blaze4harbor/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version       string `json:"version" yaml:"version"`
	Commit        string `json:"commit" yaml:"commit"`
	SchemaVersion int    `json:"schema_version" yaml:"schema_version"`
}

// VersionCommand returns the version command.
// It never runs harbor or contacts a store.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  ReadOnlyFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}

		resp := VersionResponse{
			Version:       types.Version,
			Commit:        commit,
			SchemaVersion: schema.LatestResultsVersion,
		}

		return r.Render(resp)
	}
}
