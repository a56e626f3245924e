package github

import (
	"context"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/umerkhan95/sitefeed/internal/core/logging"
)

// DefaultMaxPages bounds pagination for a single repository.
const DefaultMaxPages = 50

// maxConcurrentRepos caps the number of repositories fetched at once.
const maxConcurrentRepos = 8

// PageFetcher retrieves a single page of commits.
type PageFetcher interface {
	Authenticated() bool
	ListCommitsPage(ctx context.Context, repo string, q PageQuery) PageResult
}

// Options controls what the aggregator fetches.
type Options struct {
	Repos          []string // owner/name identifiers
	Exclude        []string // doublestar patterns removed from Repos
	Author         string
	LookbackMonths int
	PerPage        int
	MaxPages       int
}

// RepoResult is the outcome of paginating one repository. Err is the failure
// that stopped pagination early; Commits holds every page fetched before it.
type RepoResult struct {
	Repo      string   `json:"repo"`
	Commits   []Commit `json:"-"`
	Pages     int      `json:"pages"`
	Truncated bool     `json:"truncated,omitempty"`
	Err       error    `json:"-"`
}

// Report is the flattened, sorted output of a full fetch plus per-repository detail.
type Report struct {
	Commits []Commit
	Repos   []RepoResult
}

// Aggregator fans out commit pagination across repositories.
type Aggregator struct {
	client PageFetcher
	opts   Options
	now    func() time.Time
	logger zerolog.Logger
}

// NewAggregator creates an aggregator. Zero PerPage and MaxPages take defaults.
func NewAggregator(client PageFetcher, opts Options) *Aggregator {
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultPerPage
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	return &Aggregator{
		client: client,
		opts:   opts,
		now:    time.Now,
		logger: logging.Component("commits"),
	}
}

// Since returns the lower bound of the lookback window.
func (a *Aggregator) Since() time.Time {
	return a.now().AddDate(0, -a.opts.LookbackMonths, 0)
}

// FetchRepo pages through one repository until a short or empty page, the
// page cap, or the first failed page. Failures are logged and the commits
// gathered so far are kept.
func (a *Aggregator) FetchRepo(ctx context.Context, repo string, since time.Time) RepoResult {
	result := RepoResult{Repo: repo}

	for page := 1; ; page++ {
		if page > a.opts.MaxPages {
			result.Truncated = true
			a.logger.Warn().
				Str("repo", repo).
				Int("max_pages", a.opts.MaxPages).
				Msg("page cap reached, remaining history skipped")
			break
		}

		res := a.client.ListCommitsPage(ctx, repo, PageQuery{
			Author:  a.opts.Author,
			Since:   since,
			PerPage: a.opts.PerPage,
			Page:    page,
		})
		if res.Err != nil {
			result.Err = res.Err
			a.logger.Warn().Err(res.Err).Str("repo", repo).Int("page", page).Msg("failed to fetch commits")
			break
		}

		result.Pages = page
		result.Commits = append(result.Commits, res.Commits...)

		if len(res.Commits) < a.opts.PerPage {
			break
		}
	}

	a.logger.Debug().
		Str("repo", repo).
		Int("pages", result.Pages).
		Int("commits", len(result.Commits)).
		Msg("repository fetched")

	return result
}

// Collect fetches every tracked repository concurrently and returns the
// commits sorted newest first. A missing token or an empty repository list
// yields an empty report. The only error is context cancellation.
func (a *Aggregator) Collect(ctx context.Context) (Report, error) {
	report := Report{Commits: []Commit{}, Repos: []RepoResult{}}

	if !a.client.Authenticated() {
		a.logger.Warn().Msg("github token not configured, commit feed is empty")
		return report, nil
	}

	repos := FilterRepos(a.opts.Repos, a.opts.Exclude)
	if len(repos) == 0 {
		a.logger.Warn().Msg("no repositories tracked, commit feed is empty")
		return report, nil
	}

	since := a.Since()
	results := make([]RepoResult, len(repos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRepos)
	for i, repo := range repos {
		g.Go(func() error {
			results[i] = a.FetchRepo(gctx, repo, since)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}

	for _, r := range results {
		report.Commits = append(report.Commits, r.Commits...)
	}
	SortNewestFirst(report.Commits)
	report.Repos = results

	return report, nil
}

// FetchAll returns the feed grouped by UTC day.
func (a *Aggregator) FetchAll(ctx context.Context) (CommitsByDate, error) {
	report, err := a.Collect(ctx)
	if err != nil {
		return CommitsByDate{}, err
	}
	return GroupByDate(report.Commits), nil
}

// Failed returns the repositories whose pagination stopped on an error.
func (r Report) Failed() []RepoResult {
	var failed []RepoResult
	for _, repo := range r.Repos {
		if repo.Err != nil {
			failed = append(failed, repo)
		}
	}
	return failed
}

// FilterRepos drops repositories matching any exclude pattern. Invalid
// patterns never match.
func FilterRepos(repos, exclude []string) []string {
	if len(exclude) == 0 {
		return repos
	}

	kept := make([]string, 0, len(repos))
	for _, repo := range repos {
		if !excluded(repo, exclude) {
			kept = append(kept, repo)
		}
	}
	return kept
}

func excluded(repo string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, repo); ok {
			return true
		}
	}
	return false
}
