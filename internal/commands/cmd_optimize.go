package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/umerkhan95/sitefeed/internal/core/styles"
	"github.com/umerkhan95/sitefeed/internal/geo"
	"github.com/umerkhan95/sitefeed/internal/sitefeed"
	"github.com/umerkhan95/sitefeed/internal/tui/jobview"
	"github.com/umerkhan95/sitefeed/pkg/iojson"
)

type OptimizeCmd struct {
	flags *Flags
	app   *sitefeed.App
	input requestInput

	// flags
	plain      bool
	jsonOutput bool
}

// NewOptimizeCmd creates a new optimize command.
func NewOptimizeCmd(flags *Flags, app *sitefeed.App) *OptimizeCmd {
	return &OptimizeCmd{flags: flags, app: app}
}

// Register adds the optimize command to the application.
func (cmd *OptimizeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "optimize",
		Usage:     "Run a GEO optimization job for a website",
		UsageText: "sitefeed optimize [url] [--max-pages N] [--plain] [--json]",
		Description: `Submits the website to the GEO optimizer and follows the job until it
completes or fails, then prints the before and after scores and the optimized
content.

Without a URL argument the request is read as JSON from --file or piped stdin,
for example {"url": "https://example.com", "max_pages": 10}. On a terminal
with no input you are prompted for the URL.

Progress is shown as an interactive view on a terminal and as one line per
step otherwise. --json streams every update as a JSON line.`,
		Flags: append(cmd.input.Flags(),
			&cli.BoolFlag{
				Name:        "plain",
				Usage:       "print progress as log lines instead of the interactive view",
				Destination: &cmd.plain,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "stream updates as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		),
		Action: cmd.run,
	})

	return app
}

func (cmd *OptimizeCmd) run(ctx context.Context, c *cli.Command) error {
	req, err := cmd.input.Resolve(c, cmd.app.Config.GEO.MaxPages)
	if errors.Is(err, errAborted) {
		return nil
	}
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := cmd.app.Optimize.Start(ctx, req)
	out := c.Root().Writer

	var final geo.Update
	switch {
	case cmd.jsonOutput:
		final, err = streamUpdates(out, updates)
		if err != nil {
			return err
		}
	case cmd.plain || !isTerminal(os.Stderr):
		final = jobview.RunPlain(os.Stderr, updates)
	default:
		if cmd.flags.LogOutput != nil {
			cmd.flags.LogOutput.Hold()
		}
		res, err := tea.NewProgram(jobview.New(req.URL, updates, cancel), tea.WithOutput(os.Stderr)).Run()
		if cmd.flags.LogOutput != nil {
			_ = cmd.flags.LogOutput.Release()
		}
		if err != nil {
			return fmt.Errorf("run progress view: %w", err)
		}
		var aborted bool
		final, aborted = res.(jobview.Model).Result()
		if aborted {
			_, _ = fmt.Fprintln(os.Stderr, styles.MutedStyle.Render("Optimization cancelled"))
			return nil
		}
	}

	switch final.State {
	case geo.StateFailed:
		if final.Err == nil {
			final.Err = errors.New(geo.DefaultFailureMessage)
		}
		return fmt.Errorf("optimize %s: %w", req.URL, final.Err)
	case geo.StateSucceeded:
	default:
		return fmt.Errorf("optimize %s: stopped before completion", req.URL)
	}

	if cmd.jsonOutput || final.Job == nil {
		return nil
	}
	return reportJob(out, final.Job)
}

func reportJob(w io.Writer, job *geo.Job) error {
	_, _ = fmt.Fprintln(w)
	renderScores(w, job.OriginalScore, job.OptimizedScore, job.Improvement)

	if job.Content == "" {
		return nil
	}

	rendered, err := renderMarkdown(job.Content, min(terminalWidth(100), 120))
	if err != nil {
		_, _ = fmt.Fprintln(w, job.Content)
		return nil
	}
	_, _ = fmt.Fprint(w, rendered)
	return nil
}

// updateJSON is the line format of optimize --json.
type updateJSON struct {
	RunID     string   `json:"run_id"`
	JobID     string   `json:"job_id,omitempty"`
	State     string   `json:"state"`
	Step      int      `json:"step"`
	StepLabel string   `json:"step_label,omitempty"`
	Job       *geo.Job `json:"job,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func toUpdateJSON(u geo.Update) updateJSON {
	out := updateJSON{
		RunID:     u.RunID,
		JobID:     u.JobID,
		State:     string(u.State),
		Step:      u.Step,
		StepLabel: geo.StepLabel(u.Step),
		Job:       u.Job,
	}
	if u.Err != nil {
		out.Error = u.Err.Error()
	}
	return out
}

// streamUpdates writes every update as a JSON line and returns the last one.
func streamUpdates(w io.Writer, updates <-chan geo.Update) (geo.Update, error) {
	var last geo.Update
	for u := range updates {
		last = u
		if err := iojson.WriteLine(w, toUpdateJSON(u)); err != nil {
			return last, fmt.Errorf("write update: %w", err)
		}
	}
	return last, nil
}
