package sitefeed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/rs/zerolog"

	"github.com/umerkhan95/sitefeed/internal/core/config"
	"github.com/umerkhan95/sitefeed/internal/core/kv"
	"github.com/umerkhan95/sitefeed/internal/core/logging"
	"github.com/umerkhan95/sitefeed/internal/github"
)

// feedNamespace is the KV prefix for cached commit feeds.
const feedNamespace = "commits"

// Feed is an aggregated commit feed ready for rendering.
type Feed struct {
	Commits     github.CommitsByDate `json:"commits"`
	Stats       github.Stats         `json:"stats"`
	FailedRepos []string             `json:"failed_repos,omitempty"`
	Truncated   []string             `json:"truncated_repos,omitempty"`
	FetchedAt   time.Time            `json:"fetched_at"`
}

// FeedOptions adjusts a single feed request.
type FeedOptions struct {
	// Months overrides the configured lookback when positive.
	Months int
	// NoCache skips the cache read. A fresh result still refreshes the cache.
	NoCache bool
}

// FeedService builds the commit feed and caches complete results.
type FeedService struct {
	client github.PageFetcher
	cfg    config.GitHubConfig
	cache  *kv.TypedKV[Feed]
	ttl    time.Duration
	off    bool
	now    func() time.Time
	logger zerolog.Logger
}

// NewFeedService creates a feed service. A nil store disables caching.
func NewFeedService(client github.PageFetcher, cfg config.GitHubConfig, cacheCfg config.CacheConfig, store kv.KV) *FeedService {
	s := &FeedService{
		client: client,
		cfg:    cfg,
		ttl:    cacheCfg.TTL,
		off:    cacheCfg.Disabled || store == nil || cacheCfg.TTL == 0,
		now:    time.Now,
		logger: logging.Component("feed"),
	}
	if store != nil {
		s.cache = kv.Scoped[Feed](store, feedNamespace)
	}
	return s
}

// Fetch returns the feed for the configured repositories. The bool result
// reports whether it came from the cache.
func (s *FeedService) Fetch(ctx context.Context, opts FeedOptions) (Feed, bool, error) {
	aggOpts := s.aggregatorOptions(opts)

	key, err := cacheKey(aggOpts)
	if err != nil {
		return Feed{}, false, err
	}

	if !s.off && !opts.NoCache {
		if cached, err := s.cache.Get(ctx, key); err == nil {
			s.logger.Debug().Str("key", key).Msg("feed cache hit")
			return cached, true, nil
		}
	}

	report, err := github.NewAggregator(s.client, aggOpts).Collect(ctx)
	if err != nil {
		return Feed{}, false, err
	}

	feed := buildFeed(report, s.now())

	// Partial and unauthenticated results are not cached so the next run retries.
	if !s.off && s.client.Authenticated() && len(feed.FailedRepos) == 0 {
		if err := s.cache.SetTTL(ctx, key, feed, s.ttl); err != nil {
			s.logger.Warn().Err(err).Msg("cache commit feed")
		}
	}

	return feed, false, nil
}

func (s *FeedService) aggregatorOptions(opts FeedOptions) github.Options {
	months := s.cfg.LookbackMonths
	if opts.Months > 0 {
		months = opts.Months
	}
	return github.Options{
		Repos:          s.cfg.Repos,
		Exclude:        s.cfg.Exclude,
		Author:         s.cfg.Username,
		LookbackMonths: months,
		PerPage:        s.cfg.PerPage,
		MaxPages:       s.cfg.MaxPages,
	}
}

func buildFeed(report github.Report, now time.Time) Feed {
	grouped := github.GroupByDate(report.Commits)
	feed := Feed{
		Commits:   grouped,
		Stats:     grouped.Stats(),
		FetchedAt: now,
	}
	for _, r := range report.Repos {
		if r.Err != nil {
			feed.FailedRepos = append(feed.FailedRepos, r.Repo)
		}
		if r.Truncated {
			feed.Truncated = append(feed.Truncated, r.Repo)
		}
	}
	return feed
}

// cacheKey hashes everything that changes the aggregated result.
func cacheKey(opts github.Options) (string, error) {
	h, err := hashstructure.Hash(opts, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("hash feed options: %w", err)
	}
	return strconv.FormatUint(h, 16), nil
}
