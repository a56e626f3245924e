package sitefeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umerkhan95/sitefeed/internal/core/config"
	"github.com/umerkhan95/sitefeed/internal/core/kv"
	"github.com/umerkhan95/sitefeed/internal/data/db"
	"github.com/umerkhan95/sitefeed/internal/data/stores"
	"github.com/umerkhan95/sitefeed/internal/github"
)

type stubFetcher struct {
	mu     sync.Mutex
	authed bool
	pages  map[string][]github.Commit
	fail   map[string]error
	calls  int
}

func (s *stubFetcher) Authenticated() bool { return s.authed }

func (s *stubFetcher) ListCommitsPage(_ context.Context, repo string, q github.PageQuery) github.PageResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	if err := s.fail[repo]; err != nil {
		return github.PageResult{Err: err}
	}
	if q.Page > 1 {
		return github.PageResult{}
	}
	return github.PageResult{Commits: s.pages[repo]}
}

func (s *stubFetcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestKV(t *testing.T) kv.KV {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return stores.NewKVStore(database)
}

func testGitHubConfig() config.GitHubConfig {
	return config.GitHubConfig{
		Username:       "octo",
		Repos:          []string{"octo/alpha", "octo/beta"},
		LookbackMonths: 12,
		PerPage:        100,
		MaxPages:       5,
	}
}

func newStubFetcher() *stubFetcher {
	day := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	return &stubFetcher{
		authed: true,
		pages: map[string][]github.Commit{
			"octo/alpha": {
				{SHA: "a1", Repo: "alpha", RepoURL: "https://github.com/octo/alpha", Date: day},
				{SHA: "a2", Repo: "alpha", RepoURL: "https://github.com/octo/alpha", Date: day.AddDate(0, 0, -1)},
			},
			"octo/beta": {
				{SHA: "b1", Repo: "beta", RepoURL: "https://github.com/octo/beta", Date: day.Add(-time.Hour)},
			},
		},
		fail: map[string]error{},
	}
}

func TestFeedService_FetchAndCache(t *testing.T) {
	fetcher := newStubFetcher()
	svc := NewFeedService(fetcher, testGitHubConfig(), config.CacheConfig{TTL: time.Minute}, newTestKV(t))

	feed, cached, err := svc.Fetch(context.Background(), FeedOptions{})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, github.Stats{Total: 3, Repos: 2, Days: 2}, feed.Stats)
	assert.Len(t, feed.Commits["2025-03-10"], 2)
	assert.Empty(t, feed.FailedRepos)
	calls := fetcher.callCount()

	again, cached, err := svc.Fetch(context.Background(), FeedOptions{})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, feed.Stats, again.Stats)
	assert.Equal(t, calls, fetcher.callCount(), "cache hit must not refetch")
}

func TestFeedService_NoCacheRefreshes(t *testing.T) {
	fetcher := newStubFetcher()
	svc := NewFeedService(fetcher, testGitHubConfig(), config.CacheConfig{TTL: time.Minute}, newTestKV(t))

	_, _, err := svc.Fetch(context.Background(), FeedOptions{})
	require.NoError(t, err)
	calls := fetcher.callCount()

	_, cached, err := svc.Fetch(context.Background(), FeedOptions{NoCache: true})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Greater(t, fetcher.callCount(), calls)
}

func TestFeedService_MonthsChangesKey(t *testing.T) {
	fetcher := newStubFetcher()
	svc := NewFeedService(fetcher, testGitHubConfig(), config.CacheConfig{TTL: time.Minute}, newTestKV(t))

	_, _, err := svc.Fetch(context.Background(), FeedOptions{})
	require.NoError(t, err)

	_, cached, err := svc.Fetch(context.Background(), FeedOptions{Months: 3})
	require.NoError(t, err)
	assert.False(t, cached)
}

func TestFeedService_SkipsCaching(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*stubFetcher)
		cache   config.CacheConfig
		noStore bool
	}{
		{
			name:   "failed repository",
			mutate: func(f *stubFetcher) { f.fail["octo/beta"] = errors.New("status 502") },
			cache:  config.CacheConfig{TTL: time.Minute},
		},
		{
			name:   "unauthenticated",
			mutate: func(f *stubFetcher) { f.authed = false },
			cache:  config.CacheConfig{TTL: time.Minute},
		},
		{
			name:  "cache disabled",
			cache: config.CacheConfig{TTL: time.Minute, Disabled: true},
		},
		{
			name:    "no store",
			cache:   config.CacheConfig{TTL: time.Minute},
			noStore: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := newStubFetcher()
			if tt.mutate != nil {
				tt.mutate(fetcher)
			}

			var store kv.KV
			if !tt.noStore {
				store = newTestKV(t)
			}
			svc := NewFeedService(fetcher, testGitHubConfig(), tt.cache, store)

			_, _, err := svc.Fetch(context.Background(), FeedOptions{})
			require.NoError(t, err)

			_, cached, err := svc.Fetch(context.Background(), FeedOptions{})
			require.NoError(t, err)
			assert.False(t, cached)
		})
	}
}

func TestFeedService_ReportsFailedRepos(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.fail["octo/beta"] = errors.New("status 502")
	svc := NewFeedService(fetcher, testGitHubConfig(), config.CacheConfig{TTL: time.Minute}, newTestKV(t))

	feed, _, err := svc.Fetch(context.Background(), FeedOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"octo/beta"}, feed.FailedRepos)
	assert.Equal(t, 2, feed.Stats.Total)
}

func TestCacheKey_Stable(t *testing.T) {
	opts := github.Options{Repos: []string{"a/b"}, LookbackMonths: 6}

	k1, err := cacheKey(opts)
	require.NoError(t, err)
	k2, err := cacheKey(opts)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	opts.Author = "someone"
	k3, err := cacheKey(opts)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}
