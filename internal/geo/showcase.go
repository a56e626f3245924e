package geo

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// DefaultShowcaseRefresh is how often WatchShowcase reloads the listing.
const DefaultShowcaseRefresh = 30 * time.Second

// ShowcaseStats summarizes a showcase listing.
type ShowcaseStats struct {
	Total             int     `json:"total"`
	AvgOptimizedScore float64 `json:"avg_optimized_score"`
	AvgImprovement    float64 `json:"avg_improvement_pct"`
}

// Stats averages the listed websites. Averages are zero for an empty list.
func (s *Showcase) Stats() ShowcaseStats {
	stats := ShowcaseStats{Total: s.Total}
	if len(s.Websites) == 0 {
		return stats
	}

	var optimized, improvement float64
	for _, w := range s.Websites {
		optimized += w.OptimizedScore
		improvement += w.ImprovementPct
	}

	n := float64(len(s.Websites))
	stats.AvgOptimizedScore = optimized / n
	stats.AvgImprovement = improvement / n
	return stats
}

// ExtractDomain returns the host of raw without a leading "www.". Input that
// does not parse as an absolute URL is returned unchanged.
func ExtractDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// ShowcaseFetcher loads a showcase listing.
type ShowcaseFetcher interface {
	Showcase(ctx context.Context, limit int) (*Showcase, error)
}

// WatchShowcase loads the showcase immediately and then every interval until
// ctx is done, passing each outcome to fn. A fetch error is handed to fn and
// does not stop the watch; an error returned by fn does.
func WatchShowcase(ctx context.Context, f ShowcaseFetcher, limit int, every time.Duration, fn func(*Showcase, error) error) error {
	if every <= 0 {
		every = DefaultShowcaseRefresh
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if err := fn(f.Showcase(ctx, limit)); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
