package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime/debug"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/umerkhan95/sitefeed/internal/commands"
	"github.com/umerkhan95/sitefeed/internal/core/config"
	"github.com/umerkhan95/sitefeed/internal/core/styles"
	"github.com/umerkhan95/sitefeed/internal/data/db"
	"github.com/umerkhan95/sitefeed/internal/data/stores"
	"github.com/umerkhan95/sitefeed/internal/sitefeed"
	"github.com/umerkhan95/sitefeed/internal/sweep"
	"github.com/umerkhan95/sitefeed/pkg/logutils"
	"github.com/umerkhan95/sitefeed/pkg/utils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, build() reads
	// runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := resolveVersion(), commit, date

	if info, ok := debug.ReadBuildInfo(); ok && commit == "HEAD" {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				c = s.Value
			case "vcs.time":
				d = s.Value
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

// resolveVersion prefers the ldflags version and falls back to the module
// version recorded by `go install`.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if mv := info.Main.Version; mv != "" && mv != "(devel)" {
			return mv
		}
	}
	return version
}

func main() {
	ctx := context.Background()

	// A missing .env is the normal case.
	envErr := godotenv.Load()
	if errors.Is(envErr, fs.ErrNotExist) {
		envErr = nil
	}

	var (
		logCloser func()
		app       = &sitefeed.App{}
		database  *db.DB
		stopSweep func()
	)

	flags := &commands.Flags{
		LogOutput: utils.NewDeferredWriter(os.Stderr),
	}

	root := &cli.Command{
		Name:      "sitefeed",
		Usage:     "Data feeds for a portfolio site",
		UsageText: "sitefeed [global options] command [command options]",
		Description: `sitefeed builds the GitHub commit activity feed and drives the GEO website
optimizer from the command line.

Run 'sitefeed commits' to print the commit feed.
Run 'sitefeed optimize <url>' to optimize a website and follow its progress.`,
		Version:   build(),
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("SITEFEED_LOG_LEVEL"),
				Value:       "warn",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "write JSON logs to this file instead of stderr",
				Sources:     cli.EnvVars("SITEFEED_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("SITEFEED_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("SITEFEED_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logutils.New(flags.LogLevel, flags.LogFile, flags.LogOutput)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			if envErr != nil {
				log.Warn().Err(envErr).Msg("failed to load .env")
			}

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			// Validation ensures the theme exists.
			styles.SetThemeByName(cfg.Theme)

			database, err = db.Open(cfg.DataDir, db.OpenOptions{
				MaxOpenConns: cfg.Database.MaxOpenConns,
				MaxIdleConns: cfg.Database.MaxIdleConns,
				BusyTimeout:  cfg.Database.BusyTimeout,
			})
			if err != nil {
				return ctx, fmt.Errorf("open database: %w", err)
			}

			stopSweep = sweep.Run(context.Background(), stores.NewKVStore(database), cfg.Cache.SweepInterval)

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*app = *sitefeed.NewApp(cfg, database)

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if stopSweep != nil {
				stopSweep()
			}

			if app.Updates != nil && flags.Config != nil && flags.Config.UpdateCheckEnabled() {
				notifyUpdate(ctx, app)
			}

			if database != nil {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	root = commands.NewCommitsCmd(flags, app).Register(root)
	root = commands.NewOptimizeCmd(flags, app).Register(root)
	root = commands.NewAuditCmd(flags, app).Register(root)
	root = commands.NewShowcaseCmd(flags, app).Register(root)
	root = commands.NewSourcesCmd(flags, app).Register(root)
	root = commands.NewRunsCmd(flags, app).Register(root)
	root = commands.NewCacheCmd(flags, app).Register(root)
	root = commands.NewConfigValidateCmd(flags).Register(root)
	root = commands.NewDoctorCmd(flags, app).Register(root)

	exitCode := 0
	if err := root.Run(ctx, os.Args); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, styles.ErrorStyle.Render("Error: ")+msg)
		}
		exitCode = 1
	}

	os.Exit(exitCode)
}

// notifyUpdate prints a one-line release notice to stderr. It never fails
// the command.
func notifyUpdate(ctx context.Context, app *sitefeed.App) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := app.Updates.Check(ctx, resolveVersion())
	if err != nil || result == nil {
		return
	}
	fmt.Fprintln(os.Stderr, styles.MutedStyle.Render(result.Notice()))
}
