// Package updatecheck reports when a newer sitefeed release is published.
package updatecheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/mod/semver"

	"github.com/umerkhan95/sitefeed/internal/core/kv"
)

const (
	cacheTTL       = 24 * time.Hour
	cacheNamespace = "update-check"
	cacheKey       = "latest"

	// DefaultReleaseURL is the GitHub endpoint for the newest release.
	DefaultReleaseURL = "https://api.github.com/repos/umerkhan95/sitefeed/releases/latest"
)

// ReleaseInfo holds cached release data returned by GitHub.
type ReleaseInfo struct {
	TagName     string `json:"tag_name"`
	PublishedAt string `json:"published_at"`
	HTMLURL     string `json:"html_url"`
}

// Result is returned when a newer version is available.
type Result struct {
	Current string
	Latest  string
	URL     string
}

// Notice is the one-line message shown after a command.
func (r *Result) Notice() string {
	msg := fmt.Sprintf("A new sitefeed release is available: %s -> %s", r.Current, r.Latest)
	if r.URL != "" {
		msg += " (" + r.URL + ")"
	}
	return msg
}

// Checker looks up the latest release, caching it in the KV store for a day.
type Checker struct {
	store      kv.KV
	releaseURL string
	http       *http.Client
}

// Option configures a Checker.
type Option func(*Checker)

// WithReleaseURL points the checker at another releases endpoint.
func WithReleaseURL(u string) Option {
	return func(c *Checker) { c.releaseURL = u }
}

// NewChecker creates a checker backed by store.
func NewChecker(store kv.KV, opts ...Option) *Checker {
	c := &Checker{
		store:      store,
		releaseURL: DefaultReleaseURL,
		http:       &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check compares currentVersion to the latest release and returns a non-nil
// Result only when an update is available. Lookup failures are logged at
// debug level and never returned; a missed notice is not worth failing a
// command over.
func (c *Checker) Check(ctx context.Context, currentVersion string) (*Result, error) {
	if c.store == nil || currentVersion == "" || currentVersion == "dev" {
		return nil, nil
	}

	current, ok := normalizeVersion(currentVersion)
	if !ok {
		log.Debug().Str("version", currentVersion).Msg("update check: invalid current version")
		return nil, nil
	}

	cache := kv.Scoped[ReleaseInfo](c.store, cacheNamespace)
	release, hit, err := cache.Remember(ctx, cacheKey, cacheTTL, c.fetchRelease)
	if err != nil && release.TagName == "" {
		log.Debug().Err(err).Msg("update check: failed to get latest release")
		return nil, nil
	}
	if err != nil {
		log.Debug().Err(err).Msg("update check: failed to cache release")
	}

	latest, ok := normalizeVersion(release.TagName)
	if !ok {
		log.Debug().Str("tag", release.TagName).Bool("cached", hit).Msg("update check: invalid release tag")
		return nil, nil
	}

	if semver.Compare(current, latest) >= 0 {
		return nil, nil
	}

	return &Result{Current: current, Latest: latest, URL: release.HTMLURL}, nil
}

func (c *Checker) fetchRelease(ctx context.Context) (ReleaseInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.releaseURL, nil)
	if err != nil {
		return ReleaseInfo{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "sitefeed-update-checker")

	resp, err := c.http.Do(req)
	if err != nil {
		return ReleaseInfo{}, fmt.Errorf("request latest release: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Debug().Err(err).Msg("update check: close latest release response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return ReleaseInfo{}, fmt.Errorf("request latest release: status %d", resp.StatusCode)
	}

	var info ReleaseInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return ReleaseInfo{}, fmt.Errorf("decode latest release: %w", err)
	}

	if info.TagName == "" {
		return ReleaseInfo{}, fmt.Errorf("decode latest release: missing tag_name")
	}

	return info, nil
}

func normalizeVersion(version string) (string, bool) {
	if semver.IsValid(version) {
		return version, true
	}

	withPrefix := "v" + version
	if semver.IsValid(withPrefix) {
		return withPrefix, true
	}

	return "", false
}
