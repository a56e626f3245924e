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

type CommitsCmd struct {
	flags *Flags
	app   *sitefeed.App

	// flags
	jsonOutput bool
	noCache    bool
	months     int
}

// NewCommitsCmd creates a new commits command.
func NewCommitsCmd(flags *Flags, app *sitefeed.App) *CommitsCmd {
	return &CommitsCmd{flags: flags, app: app}
}

// Register adds the commits command to the application.
func (cmd *CommitsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "commits",
		Usage:     "Show the GitHub commit activity feed",
		UsageText: "sitefeed commits [--json] [--no-cache] [--months N]",
		Description: `Fetches commits from every tracked repository, newest first, grouped by day.

Repositories are fetched concurrently. A repository that fails is reported and
skipped; the rest of the feed is still shown. Complete results are cached for
cache.ttl. Requires the token named by github.token_env.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output the feed as JSON",
				Destination: &cmd.jsonOutput,
			},
			&cli.BoolFlag{
				Name:        "no-cache",
				Usage:       "ignore the cached feed and fetch again",
				Destination: &cmd.noCache,
			},
			&cli.IntFlag{
				Name:        "months",
				Usage:       "lookback window in months (defaults to github.lookback_months)",
				Destination: &cmd.months,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *CommitsCmd) run(ctx context.Context, c *cli.Command) error {
	if cmd.months < 0 {
		return fmt.Errorf("--months must be positive, got %d", cmd.months)
	}

	feed, cached, err := cmd.app.Feed.Fetch(ctx, sitefeed.FeedOptions{
		Months:  cmd.months,
		NoCache: cmd.noCache,
	})
	if err != nil {
		return fmt.Errorf("fetch commits: %w", err)
	}

	if cmd.jsonOutput {
		return iojson.WriteWith(c.Root().Writer, os.Stderr, feed)
	}

	renderFeed(c.Root().Writer, feed, time.Now())
	if cached {
		_, _ = fmt.Fprintf(os.Stderr, "(cached %s, use --no-cache to refresh)\n", feed.FetchedAt.Local().Format(time.Kitchen))
	}
	return nil
}
