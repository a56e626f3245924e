package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/umerkhan95/sitefeed/internal/sitefeed"
	"github.com/umerkhan95/sitefeed/pkg/iojson"
)

type RunsCmd struct {
	flags *Flags
	app   *sitefeed.App

	// flags
	limit      int
	jsonOutput bool
}

// NewRunsCmd creates a new runs command.
func NewRunsCmd(flags *Flags, app *sitefeed.App) *RunsCmd {
	return &RunsCmd{flags: flags, app: app}
}

// Register adds the runs command to the application.
func (cmd *RunsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "runs",
		Usage:     "List past optimization runs",
		UsageText: "sitefeed runs [--limit N] [--json]",
		Description: `Lists the optimization runs recorded by 'sitefeed optimize', newest first.

Each run keeps its last state, job id and scores. --json writes one run per line.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "limit",
				Usage:       "maximum runs to list (0 lists all)",
				Value:       20,
				Destination: &cmd.limit,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *RunsCmd) run(ctx context.Context, c *cli.Command) error {
	runs, err := cmd.app.Runs.List(ctx, cmd.limit)
	if err != nil {
		return err
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, r := range runs {
			if err := iojson.WriteLine(out, r); err != nil {
				return fmt.Errorf("encode run: %w", err)
			}
		}
		return nil
	}

	if len(runs) == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "No runs recorded")
		return nil
	}

	return renderRuns(out, runs, time.Now())
}
