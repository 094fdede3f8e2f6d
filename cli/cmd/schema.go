package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/kewos554321/blaze4harbor/cli/render"
	"github.com/kewos554321/blaze4harbor/runtime"
	"github.com/kewos554321/blaze4harbor/schema"
)

// SchemaVersionsResponse lists the known results schema versions.
type SchemaVersionsResponse struct {
	Name     string `json:"name" yaml:"name"`
	Versions []int  `json:"versions" yaml:"versions"`
	Latest   int    `json:"latest" yaml:"latest"`
}

// SchemaCommand returns the schema command.
// It prints the results collection schema as a flattened field listing.
func SchemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Show the results collection schema",
		Flags: append(ReadOnlyFlags(),
			&cli.IntFlag{
				Name:  "version",
				Usage: "Schema version (0 selects the latest)",
			},
			&cli.BoolFlag{
				Name:  "list-versions",
				Usage: "List known schema versions instead of fields",
			},
		),
		Action: schemaAction,
	}
}

func schemaAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeFailure)
	}

	if c.Bool("list-versions") {
		return r.Render(SchemaVersionsResponse{
			Name:     schema.ResultsName,
			Versions: schema.ResultsVersions(),
			Latest:   schema.LatestResultsVersion,
		})
	}

	desc, err := schema.Results(c.Int("version"))
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeFailure)
	}
	return r.Render(desc.Flatten())
}
