package jobview

import (
	"fmt"
	"io"

	"github.com/umerkhan95/sitefeed/internal/geo"
)

// RunPlain writes one line per state or step change until updates closes and
// returns the last update. It is used when stdout is not a terminal.
func RunPlain(w io.Writer, updates <-chan geo.Update) geo.Update {
	last := geo.Update{State: geo.StateIdle, Step: -1}

	for u := range updates {
		changed := u.State != last.State || u.Step != last.Step
		prevState := last.State
		last = u
		if !changed {
			continue
		}

		switch u.State {
		case geo.StateSubmitting:
			_, _ = fmt.Fprintln(w, "submitting job")
		case geo.StatePolling:
			if prevState != geo.StatePolling {
				_, _ = fmt.Fprintf(w, "job %s accepted\n", u.JobID)
			}
			_, _ = fmt.Fprintf(w, "[%s] %s\n", StepCaption(u.Step), geo.StepLabel(u.Step))
		case geo.StateSucceeded:
			_, _ = fmt.Fprintf(w, "[%s] %s\n", StepCaption(u.Step), geo.StepLabel(u.Step))
		case geo.StateFailed:
			_, _ = fmt.Fprintf(w, "failed: %s\n", errText(u.Err))
		}
	}

	return last
}
