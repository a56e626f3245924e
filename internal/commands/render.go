package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/umerkhan95/sitefeed/internal/core/doctor"
	"github.com/umerkhan95/sitefeed/internal/core/styles"
	"github.com/umerkhan95/sitefeed/internal/data/stores"
	"github.com/umerkhan95/sitefeed/internal/format"
	"github.com/umerkhan95/sitefeed/internal/geo"
	"github.com/umerkhan95/sitefeed/internal/github"
	"github.com/umerkhan95/sitefeed/internal/sitefeed"
)

const dividerWidth = 40

func divider() string {
	return styles.DividerStyle.Render(strings.Repeat("─", dividerWidth))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

// renderFeed writes the commit feed grouped by day, newest day first. Day
// keys are UTC calendar days and are labeled as that date in now's zone.
func renderFeed(w io.Writer, feed sitefeed.Feed, now time.Time) {
	if feed.Stats.Total == 0 {
		_, _ = fmt.Fprintln(w, styles.MutedStyle.Render("No commits found"))
		renderFeedWarnings(w, feed)
		return
	}

	loc := now.Location()
	for _, day := range feed.Commits.Days() {
		date, err := time.ParseInLocation(github.DateKeyLayout, day, loc)
		if err != nil {
			continue
		}

		_, _ = fmt.Fprintln(w, styles.DayHeaderStyle.Render(format.RelativeDate(date, now))+"  "+
			styles.DateStyle.Render(format.LongDate(date)))

		for _, c := range feed.Commits[day] {
			repo := lipgloss.NewStyle().Foreground(styles.ColorForString(c.Repo)).Render(c.Repo)
			_, _ = fmt.Fprintf(w, "  %s  %s  %s  %s\n",
				styles.TimeStyle.Render(format.Clock(c.Date.In(loc))),
				styles.SHAStyle.Render(c.SHA),
				repo,
				firstLine(c.Message),
			)
		}
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, styles.MutedStyle.Render(fmt.Sprintf("%d commits across %d repositories on %d days",
		feed.Stats.Total, feed.Stats.Repos, feed.Stats.Days)))
	renderFeedWarnings(w, feed)
}

func renderFeedWarnings(w io.Writer, feed sitefeed.Feed) {
	for _, repo := range feed.FailedRepos {
		_, _ = fmt.Fprintln(w, styles.WarningStyle.Render("! "+repo+": fetch failed, commits may be missing"))
	}
	for _, repo := range feed.Truncated {
		_, _ = fmt.Fprintln(w, styles.WarningStyle.Render("! "+repo+": page cap reached, older history skipped"))
	}
}

func scoreCard(label string, v *float64) string {
	value := styles.CardValueStyle
	if v != nil {
		value = value.Foreground(styles.ScoreColor(*v))
	}
	return styles.CardStyle.Render(styles.CardLabelStyle.Render(label) + "\n" + value.Render(format.Score(v)))
}

func improvementCard(v *float64) string {
	value := styles.CardValueStyle
	switch {
	case v == nil:
		value = value.Foreground(styles.ColorMuted)
	case *v > 0:
		value = value.Foreground(styles.ColorSuccess)
	case *v < 0:
		value = value.Foreground(styles.ColorError)
	}
	return styles.CardStyle.Render(styles.CardLabelStyle.Render("Improvement") + "\n" + value.Render(format.Improvement(v)))
}

// renderScores writes the before, after and improvement cards side by side.
func renderScores(w io.Writer, original, optimized, improvement *float64) {
	_, _ = fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top,
		scoreCard("Original", original),
		scoreCard("Optimized", optimized),
		improvementCard(improvement),
	))
}

// renderMarkdown renders md for a terminal of the given width.
func renderMarkdown(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.GlamourStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

func renderAudit(w io.Writer, r *geo.AuditReport) {
	_, _ = fmt.Fprintln(w, styles.HeaderStyle.Render("GEO Audit"), styles.LinkStyle.Render(r.URL))
	_, _ = fmt.Fprintln(w, divider())

	if r.Industry != "" {
		_, _ = fmt.Fprintln(w, styles.BadgeStyle.Render(r.Industry))
	}
	_, _ = fmt.Fprintln(w, scoreCard("GEO score", r.Score))
	if r.PagesAnalyzed > 0 {
		_, _ = fmt.Fprintln(w, styles.MutedStyle.Render(fmt.Sprintf("%d pages analyzed", r.PagesAnalyzed)))
	}

	if len(r.Recommendations) > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, styles.TitleStyle.Render("Recommendations"))
		for _, rec := range r.Recommendations {
			_, _ = fmt.Fprintf(w, "  • %s\n", rec)
		}
	}
}

// renderShowcase writes the summary line followed by one row per website.
func renderShowcase(w io.Writer, sc *geo.Showcase, now time.Time) {
	stats := sc.Stats()
	_, _ = fmt.Fprintln(w, styles.HeaderStyle.Render("Optimized websites"))
	_, _ = fmt.Fprintln(w, styles.MutedStyle.Render(fmt.Sprintf("%d total · avg score %.1f · avg improvement %s",
		stats.Total, stats.AvgOptimizedScore, format.Percent(stats.AvgImprovement))))
	_, _ = fmt.Fprintln(w, divider())

	if len(sc.Websites) == 0 {
		_, _ = fmt.Fprintln(w, styles.MutedStyle.Render("No websites optimized yet"))
		return
	}

	domainCol := lipgloss.NewStyle().Width(32)
	industryCol := lipgloss.NewStyle().Width(18)
	scoreCol := lipgloss.NewStyle().Width(16)

	for _, site := range sc.Websites {
		industry := ""
		if site.Industry != nil {
			industry = *site.Industry
		}

		age := ""
		if t, ok := site.OptimizedTime(); ok {
			age = format.Ago(t, now)
		}

		scores := lipgloss.NewStyle().Foreground(styles.ScoreColor(site.OriginalScore)).Render(fmt.Sprintf("%.1f", site.OriginalScore)) +
			" → " +
			lipgloss.NewStyle().Foreground(styles.ScoreColor(site.OptimizedScore)).Render(fmt.Sprintf("%.1f", site.OptimizedScore))

		_, _ = fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top,
			domainCol.Render(styles.LinkStyle.Render(geo.ExtractDomain(site.URL))),
			industryCol.Render(styles.MutedStyle.Render(industry)),
			scoreCol.Render(scores),
			lipgloss.NewStyle().Width(8).Render(styles.SuccessStyle.Render(format.Percent(site.ImprovementPct))),
			styles.TimeStyle.Render(age),
		))
	}
}

func renderSources(w io.Writer, s *geo.Sources) {
	_, _ = fmt.Fprintln(w, styles.HeaderStyle.Render("Research sources"))
	_, _ = fmt.Fprintln(w, styles.MutedStyle.Render(fmt.Sprintf("%d sources · %d guidelines", s.TotalSources, s.TotalGuidelines)))
	_, _ = fmt.Fprintln(w, divider())

	for _, src := range s.Sources {
		_, _ = fmt.Fprintln(w, styles.TitleStyle.Render(src.Title))
		if len(src.Authors) > 0 {
			_, _ = fmt.Fprintln(w, "  "+styles.MutedStyle.Render(strings.Join(src.Authors, ", ")))
		}
		if src.URL != "" {
			_, _ = fmt.Fprintln(w, "  "+styles.LinkStyle.Render(src.URL))
		}
		_, _ = fmt.Fprintf(w, "  %s\n", styles.BadgeStyle.Render(fmt.Sprintf("%d guidelines", src.GuidelinesCount)))
	}
}

func renderRuns(w io.Writer, runs []stores.Run, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tURL\tSTATE\tSCORE\tUPDATED")
	for _, r := range runs {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s → %s\t%s\n",
			id, r.URL, r.State,
			format.Score(r.OriginalScore), format.Score(r.OptimizedScore),
			format.Ago(r.UpdatedAt, now),
		)
	}
	return tw.Flush()
}

// renderDoctor writes the check results and reports the failed item count.
func renderDoctor(w io.Writer, results []doctor.Result) int {
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, styles.HeaderStyle.Render("sitefeed doctor"))
	_, _ = fmt.Fprintln(w, divider())
	_, _ = fmt.Fprintln(w)

	for _, result := range results {
		_, _ = fmt.Fprintln(w, styles.TitleStyle.Render(result.Name))

		for _, item := range result.Items {
			var detail string
			if item.Detail != "" {
				detail = " " + styles.MutedStyle.Render(item.Detail)
			}

			var icon string
			switch item.Status {
			case doctor.StatusPass:
				icon = styles.SuccessStyle.Render("✔")
			case doctor.StatusWarn:
				icon = styles.WarningStyle.Render("●")
			case doctor.StatusFail:
				icon = styles.ErrorStyle.Render("✘")
			}

			_, _ = fmt.Fprintf(w, "  %s %s%s\n", icon, item.Label, detail)
		}

		_, _ = fmt.Fprintln(w)
	}

	passed, warned, failed := doctor.Summary(results)
	_, _ = fmt.Fprintf(w, "%s  %s  %s\n",
		styles.SuccessStyle.Render(fmt.Sprintf("%d passed", passed)),
		styles.WarningStyle.Render(fmt.Sprintf("%d warnings", warned)),
		styles.ErrorStyle.Render(fmt.Sprintf("%d failed", failed)),
	)

	return failed
}
