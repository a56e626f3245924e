// Package sweep runs the background expiry loop for the response cache.
package sweep

import (
	"context"
	"time"

	"github.com/umerkhan95/sitefeed/internal/core/logging"
)

// Sweeper deletes expired cache entries and reports how many were removed.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Start sweeps once immediately and then on every interval tick.
// It blocks until the context is cancelled.
func Start(ctx context.Context, s Sweeper, interval time.Duration) {
	logger := logging.Component("sweep")

	run := func() {
		n, err := s.SweepExpired(ctx)
		if err != nil {
			logger.Debug().Err(err).Msg("kv sweep failed")
			return
		}
		if n > 0 {
			logger.Debug().Int64("removed", n).Msg("kv sweep")
		}
	}

	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// Run starts the loop in a goroutine. The returned stop cancels it and waits
// for an in-flight sweep to return, so the store can be closed afterwards.
func Run(ctx context.Context, s Sweeper, interval time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		Start(ctx, s, interval)
	}()

	return func() {
		cancel()
		<-done
	}
}
