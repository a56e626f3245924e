package github

import (
	"slices"
	"strings"
	"time"
)

const shortSHALen = 7

// DateKeyLayout formats the UTC calendar day used as the grouping key.
const DateKeyLayout = "2006-01-02"

// Commit is one normalized entry of the activity feed.
type Commit struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
	Repo    string    `json:"repo"`
	RepoURL string    `json:"repoUrl"`
	URL     string    `json:"url"`
}

// CommitsByDate maps a UTC day ("YYYY-MM-DD") to that day's commits, newest first.
type CommitsByDate map[string][]Commit

// NormalizeCommit converts an API payload into a feed entry for repo ("owner/name").
func NormalizeCommit(repo string, rc apiCommit) Commit {
	sha := rc.SHA
	if len(sha) > shortSHALen {
		sha = sha[:shortSHALen]
	}

	message, _, _ := strings.Cut(rc.Commit.Message, "\n")

	return Commit{
		SHA:     sha,
		Message: strings.TrimRight(message, "\r"),
		Date:    rc.Commit.Author.Date,
		Repo:    RepoName(repo),
		RepoURL: "https://github.com/" + repo,
		URL:     rc.HTMLURL,
	}
}

// RepoName returns the repository part of an "owner/name" identifier.
func RepoName(repo string) string {
	if _, name, ok := strings.Cut(repo, "/"); ok {
		return name
	}
	return repo
}

// DateKey returns the UTC grouping key for t.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateKeyLayout)
}

// SortNewestFirst orders commits by descending timestamp in place.
// Commits with equal timestamps keep their relative order.
func SortNewestFirst(commits []Commit) {
	slices.SortStableFunc(commits, func(a, b Commit) int {
		return b.Date.Compare(a.Date)
	})
}

// GroupByDate buckets commits by UTC day. The input order is preserved within
// each bucket, so sorted input yields sorted buckets. The result is never nil.
func GroupByDate(commits []Commit) CommitsByDate {
	grouped := make(CommitsByDate)
	for _, c := range commits {
		key := DateKey(c.Date)
		grouped[key] = append(grouped[key], c)
	}
	return grouped
}

// Days returns the grouping keys, newest day first.
func (g CommitsByDate) Days() []string {
	days := make([]string, 0, len(g))
	for day := range g {
		days = append(days, day)
	}
	slices.Sort(days)
	slices.Reverse(days)
	return days
}

// Stats summarizes a feed.
type Stats struct {
	Total int `json:"total"`
	Repos int `json:"repos"`
	Days  int `json:"days"`
}

// Stats counts commits, distinct repositories, and active days.
func (g CommitsByDate) Stats() Stats {
	repos := make(map[string]struct{})
	total := 0
	for _, commits := range g {
		total += len(commits)
		for _, c := range commits {
			repos[c.RepoURL] = struct{}{}
		}
	}
	return Stats{Total: total, Repos: len(repos), Days: len(g)}
}
