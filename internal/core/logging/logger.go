// Package logging holds the zerolog helpers shared by the feed and optimizer packages.
package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Component creates a new logger with a component identifier under the "cmp"
// key. Events logged with .Ctx(ctx) pick up run_id and job_id from the context.
func Component(name string) zerolog.Logger {
	return log.With().Str("cmp", name).Logger().Hook(ContextHook{})
}
