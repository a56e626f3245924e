// Package sitefeed wires the feed, optimizer and cache services together for
// the CLI.
package sitefeed

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/umerkhan95/sitefeed/internal/core/config"
	"github.com/umerkhan95/sitefeed/internal/core/doctor"
	"github.com/umerkhan95/sitefeed/internal/core/kv"
	"github.com/umerkhan95/sitefeed/internal/data/db"
	"github.com/umerkhan95/sitefeed/internal/data/stores"
	"github.com/umerkhan95/sitefeed/internal/geo"
	"github.com/umerkhan95/sitefeed/internal/github"
	"github.com/umerkhan95/sitefeed/internal/updatecheck"
)

// App is the central entry point for all sitefeed operations.
// Commands consume App instead of cherry-picking raw dependencies.
type App struct {
	Feed     *FeedService
	Optimize *OptimizeService
	GEO      *geo.Client
	Doctor   *DoctorService
	Updates  *updatecheck.Checker

	Config *config.Config
	DB     *db.DB
	KV     kv.KV
	Runs   *stores.RunStore
}

// NewApp constructs an App from the loaded config and an open database.
func NewApp(cfg *config.Config, database *db.DB) *App {
	kvStore := stores.NewKVStore(database)
	runs := stores.NewRunStore(database)

	gh := github.NewClient(cfg.GitHub.APIURL, cfg.GitHub.Token(),
		github.WithRateLimit(cfg.GitHub.RequestsPerSecond))
	geoClient := geo.NewClient(cfg.GEO.APIURL, &http.Client{Timeout: cfg.GEO.RequestTimeout})

	return &App{
		Feed:     NewFeedService(gh, cfg.GitHub, cfg.Cache, kvStore),
		Optimize: NewOptimizeService(geoClient, runs, geo.PollerOptions{Interval: cfg.GEO.PollInterval}),
		GEO:      geoClient,
		Doctor:   NewDoctorService(cfg, database),
		Updates:  updatecheck.NewChecker(kvStore),
		Config:   cfg,
		DB:       database,
		KV:       kvStore,
		Runs:     runs,
	}
}

// DoctorService runs health checks on the sitefeed setup.
type DoctorService struct {
	config *config.Config
	db     *db.DB
	http   *http.Client
}

// NewDoctorService creates a new DoctorService.
func NewDoctorService(cfg *config.Config, database *db.DB) *DoctorService {
	return &DoctorService{config: cfg, db: database}
}

// RunChecks executes all doctor checks and returns results.
func (d *DoctorService) RunChecks(ctx context.Context, configPath string) []doctor.Result {
	var pinger doctor.Pinger
	if d.db != nil {
		pinger = d.db.Conn()
	}

	checks := []doctor.Check{
		doctor.NewConfigCheck(d.config, configPath),
		doctor.NewDatabaseCheck(pinger, filepath.Join(d.config.DataDir, db.FileName)),
		doctor.NewEndpointCheck(d.http,
			doctor.Endpoint{Label: "GitHub API", URL: d.config.GitHub.APIURL},
			doctor.Endpoint{Label: "GEO API", URL: d.config.GEO.APIURL + "/guidelines?view=sources"},
		),
	}
	return doctor.RunAll(ctx, checks)
}
