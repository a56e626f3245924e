package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/umerkhan95/sitefeed/internal/sitefeed"
)

type CacheCmd struct {
	flags *Flags
	app   *sitefeed.App

	prefix string
}

// NewCacheCmd creates a new cache command.
func NewCacheCmd(flags *Flags, app *sitefeed.App) *CacheCmd {
	return &CacheCmd{flags: flags, app: app}
}

// Register adds the cache command to the application.
func (cmd *CacheCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "cache",
		Usage: "Response cache commands",
		Commands: []*cli.Command{
			{
				Name:      "clear",
				Usage:     "Delete cached API responses",
				UsageText: "sitefeed cache clear [--prefix P]",
				Description: `Deletes cached entries from the local database. Without --prefix every entry
is removed. Prefixes are namespaces such as "commits:" or "update-check:".`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "prefix",
						Usage:       "only delete keys starting with `PREFIX`",
						Destination: &cmd.prefix,
					},
				},
				Action: cmd.runClear,
			},
		},
	})

	return app
}

func (cmd *CacheCmd) runClear(ctx context.Context, c *cli.Command) error {
	n, err := cmd.app.KV.DeletePrefix(ctx, cmd.prefix)
	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "Removed %d cached entries\n", n)
	return nil
}
