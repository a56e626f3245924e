package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/umerkhan95/sitefeed/internal/sitefeed"
	"github.com/umerkhan95/sitefeed/pkg/iojson"
)

type SourcesCmd struct {
	flags *Flags
	app   *sitefeed.App

	jsonOutput bool
}

// NewSourcesCmd creates a new sources command.
func NewSourcesCmd(flags *Flags, app *sitefeed.App) *SourcesCmd {
	return &SourcesCmd{flags: flags, app: app}
}

// Register adds the sources command to the application.
func (cmd *SourcesCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "sources",
		Usage:     "List the research sources behind the optimizer's guidelines",
		UsageText: "sitefeed sources [--json]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *SourcesCmd) run(ctx context.Context, c *cli.Command) error {
	sources, err := cmd.app.GEO.Sources(ctx)
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}

	if cmd.jsonOutput {
		return iojson.WriteWith(c.Root().Writer, os.Stderr, sources)
	}

	renderSources(c.Root().Writer, sources)
	return nil
}
