package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/umerkhan95/sitefeed/internal/sitefeed"
	"github.com/umerkhan95/sitefeed/pkg/iojson"
)

type AuditCmd struct {
	flags *Flags
	app   *sitefeed.App
	input requestInput

	// flags
	jsonOutput bool
}

// NewAuditCmd creates a new audit command.
func NewAuditCmd(flags *Flags, app *sitefeed.App) *AuditCmd {
	return &AuditCmd{flags: flags, app: app}
}

// Register adds the audit command to the application.
func (cmd *AuditCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "audit",
		Usage:     "Score a website without optimizing it",
		UsageText: "sitefeed audit [url] [--max-pages N] [--json]",
		Description: `Runs a synchronous GEO audit and prints the score and recommendations.

The URL is resolved the same way as for 'sitefeed optimize'. --json prints the
complete audit document returned by the API.`,
		Flags: append(cmd.input.Flags(),
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output the raw audit as JSON",
				Destination: &cmd.jsonOutput,
			},
		),
		Action: cmd.run,
	})

	return app
}

func (cmd *AuditCmd) run(ctx context.Context, c *cli.Command) error {
	req, err := cmd.input.Resolve(c, cmd.app.Config.GEO.MaxPages)
	if errors.Is(err, errAborted) {
		return nil
	}
	if err != nil {
		return err
	}

	report, err := cmd.app.GEO.Audit(ctx, req)
	if err != nil {
		return fmt.Errorf("audit %s: %w", req.URL, err)
	}

	if cmd.jsonOutput {
		var doc any = report
		if len(report.Raw) > 0 {
			doc = json.RawMessage(report.Raw)
		}
		return iojson.WriteWith(c.Root().Writer, os.Stderr, doc)
	}

	renderAudit(c.Root().Writer, report)
	return nil
}
