package sitefeed

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/umerkhan95/sitefeed/internal/core/logging"
	"github.com/umerkhan95/sitefeed/internal/data/stores"
	"github.com/umerkhan95/sitefeed/internal/geo"
)

// RunRecorder persists optimization runs.
type RunRecorder interface {
	Save(ctx context.Context, run stores.Run) error
}

// OptimizeService drives the job poller and records every state change of
// a run in the run history.
type OptimizeService struct {
	poller *geo.Poller
	runs   RunRecorder
	logger zerolog.Logger
}

// NewOptimizeService creates an optimize service. runs may be nil.
func NewOptimizeService(api geo.JobAPI, runs RunRecorder, opts geo.PollerOptions) *OptimizeService {
	return &OptimizeService{
		poller: geo.NewPoller(api, opts),
		runs:   runs,
		logger: logging.Component("optimize"),
	}
}

// Start submits req and returns the poller's updates. The returned channel
// closes when the poller's does.
func (s *OptimizeService) Start(ctx context.Context, req geo.OptimizeRequest) <-chan geo.Update {
	in := s.poller.Submit(ctx, req)
	out := make(chan geo.Update, cap(in))

	go func() {
		defer close(out)

		var last geo.State
		for u := range in {
			if u.State != last || u.State.Terminal() {
				s.record(ctx, req, u)
				last = u.State
			}

			select {
			case out <- u:
			case <-ctx.Done():
			}
		}
	}()

	return out
}

// Stop halts the active run.
func (s *OptimizeService) Stop() {
	s.poller.Stop()
}

func (s *OptimizeService) record(ctx context.Context, req geo.OptimizeRequest, u geo.Update) {
	if s.runs == nil {
		return
	}

	run := stores.Run{
		ID:    u.RunID,
		JobID: u.JobID,
		URL:   req.URL,
		State: string(u.State),
	}
	if u.Snapshot != nil {
		run.OriginalScore = u.Snapshot.OriginalScore
		run.OptimizedScore = u.Snapshot.OptimizedScore
	}
	if u.Err != nil {
		run.Error = u.Err.Error()
	}

	// Terminal states are recorded even after the caller gave up.
	if err := s.runs.Save(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warn().Err(err).Str("run_id", u.RunID).Msg("record run")
	}
}
