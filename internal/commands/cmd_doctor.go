package commands

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/umerkhan95/sitefeed/internal/core/doctor"
	"github.com/umerkhan95/sitefeed/internal/sitefeed"
	"github.com/umerkhan95/sitefeed/pkg/iojson"
)

type DoctorCmd struct {
	flags  *Flags
	app    *sitefeed.App
	format string
}

func NewDoctorCmd(flags *Flags, app *sitefeed.App) *DoctorCmd {
	return &DoctorCmd{flags: flags, app: app}
}

func (cmd *DoctorCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "doctor",
		Usage:       "Run health checks on your sitefeed setup",
		UsageText:   "sitefeed doctor [options]",
		Description: "Checks the configuration, the cache database, and that the GitHub and GEO APIs are reachable.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *DoctorCmd) run(ctx context.Context, c *cli.Command) error {
	results := cmd.app.Doctor.RunChecks(ctx, cmd.flags.ConfigPath)

	if cmd.format == "json" {
		passed, warned, failed := doctor.Summary(results)
		out := struct {
			Healthy bool            `json:"healthy"`
			Summary summaryJSON     `json:"summary"`
			Checks  []doctor.Result `json:"checks"`
		}{
			Healthy: failed == 0,
			Summary: summaryJSON{Passed: passed, Warned: warned, Failed: failed},
			Checks:  results,
		}
		return iojson.WriteWith(c.Root().Writer, os.Stderr, out)
	}

	if failed := renderDoctor(os.Stderr, results); failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

type summaryJSON struct {
	Passed int `json:"passed"`
	Warned int `json:"warned"`
	Failed int `json:"failed"`
}
