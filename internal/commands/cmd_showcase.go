package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/umerkhan95/sitefeed/internal/core/styles"
	"github.com/umerkhan95/sitefeed/internal/geo"
	"github.com/umerkhan95/sitefeed/internal/sitefeed"
	"github.com/umerkhan95/sitefeed/pkg/iojson"
)

type ShowcaseCmd struct {
	flags *Flags
	app   *sitefeed.App

	// flags
	limit      int
	watch      bool
	jsonOutput bool
}

// NewShowcaseCmd creates a new showcase command.
func NewShowcaseCmd(flags *Flags, app *sitefeed.App) *ShowcaseCmd {
	return &ShowcaseCmd{flags: flags, app: app}
}

// Register adds the showcase command to the application.
func (cmd *ShowcaseCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "showcase",
		Usage:     "List websites the optimizer has improved",
		UsageText: "sitefeed showcase [--limit N] [--watch] [--json]",
		Description: `Shows recently optimized websites with their before and after scores.

--watch reloads the listing every geo.showcase_refresh until interrupted. With
--json every load is written as one JSON line.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "limit",
				Usage:       "number of websites to list (defaults to geo.showcase_limit)",
				Destination: &cmd.limit,
			},
			&cli.BoolFlag{
				Name:        "watch",
				Aliases:     []string{"w"},
				Usage:       "keep refreshing the listing",
				Destination: &cmd.watch,
			},
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

func (cmd *ShowcaseCmd) run(ctx context.Context, c *cli.Command) error {
	limit := cmd.limit
	if limit <= 0 {
		limit = cmd.app.Config.GEO.ShowcaseLimit
	}
	out := c.Root().Writer

	if !cmd.watch {
		sc, err := cmd.app.GEO.Showcase(ctx, limit)
		if err != nil {
			return fmt.Errorf("load showcase: %w", err)
		}
		if cmd.jsonOutput {
			return iojson.WriteWith(out, os.Stderr, showcaseJSON{Showcase: sc, Stats: sc.Stats()})
		}
		renderShowcase(out, sc, time.Now())
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	interactive := !cmd.jsonOutput && isTerminal(os.Stdout)

	return geo.WatchShowcase(ctx, cmd.app.GEO, limit, cmd.app.Config.GEO.ShowcaseRefresh, func(sc *geo.Showcase, err error) error {
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			_, _ = fmt.Fprintln(os.Stderr, styles.WarningStyle.Render("refresh failed: "+err.Error()))
			return nil
		}

		if cmd.jsonOutput {
			return iojson.WriteLine(out, showcaseJSON{Showcase: sc, Stats: sc.Stats()})
		}

		if interactive {
			// Clear the screen and home the cursor.
			_, _ = fmt.Fprint(out, "\033[H\033[2J")
		}
		now := time.Now()
		renderShowcase(out, sc, now)
		_, _ = fmt.Fprintln(out, styles.MutedStyle.Render("updated "+now.Format(time.Kitchen)+" · ctrl+c to stop"))
		return nil
	})
}

type showcaseJSON struct {
	*geo.Showcase
	Stats geo.ShowcaseStats `json:"stats"`
}
