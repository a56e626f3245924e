package geo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/umerkhan95/sitefeed/internal/core/logging"
)

// DefaultPollInterval is the delay between job status checks.
const DefaultPollInterval = 3 * time.Second

// ErrSuperseded is reported for a poll result that belongs to a job other
// than the one currently tracked.
var ErrSuperseded = errors.New("poll result superseded")

// State is the poller's view of a submission.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StatePolling    State = "polling"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Terminal reports whether no further updates follow s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// JobAPI is the subset of Client the poller drives.
type JobAPI interface {
	Optimize(ctx context.Context, req OptimizeRequest) (string, error)
	Job(ctx context.Context, id string) (*JobSnapshot, error)
	Results(ctx context.Context, id string) (*JobResults, error)
}

// Update is one observation emitted to the presentation layer.
type Update struct {
	RunID    string
	JobID    string
	State    State
	Step     int
	Snapshot *JobSnapshot
	Job      *Job
	Err      error
}

// PollerOptions configures a Poller.
type PollerOptions struct {
	Interval time.Duration
	NewRunID func() string
}

// Poller submits optimization jobs and tracks one of them at a time. A new
// Submit stops the previous run before its own ticker starts.
type Poller struct {
	api      JobAPI
	interval time.Duration
	newRunID func() string
	logger   zerolog.Logger

	mu      sync.Mutex
	current *run
	state   State

	active atomic.Int32
}

// NewPoller creates a poller backed by api.
func NewPoller(api JobAPI, opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}
	return &Poller{
		api:      api,
		interval: opts.Interval,
		newRunID: opts.NewRunID,
		logger:   logging.Component("geo.poller"),
		state:    StateIdle,
	}
}

// run is the owned handle of one submission.
type run struct {
	id       string
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// jobID is written once by the run's goroutine before polling starts.
	jobID string
}

func newRun(id string) *run {
	return &run{id: id, stop: make(chan struct{}), done: make(chan struct{})}
}

func (r *run) cancel() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// checkResult is a status observation tagged with the run and job it was
// issued for.
type checkResult struct {
	runID string
	jobID string
	snap  *JobSnapshot
	err   error
}

// accepts returns ErrSuperseded when res was issued for a different run or job.
func (r *run) accepts(res checkResult) error {
	if res.runID != r.id || res.jobID != r.jobID {
		return ErrSuperseded
	}
	return nil
}

// Submit starts a job for req and returns a channel of updates. The channel
// is closed after a terminal update, or without one when the run is stopped
// by Stop, a newer Submit, or ctx.
func (p *Poller) Submit(ctx context.Context, req OptimizeRequest) <-chan Update {
	r := newRun(p.newRunID())

	p.mu.Lock()
	prev := p.current
	p.current = r
	p.state = StateSubmitting
	p.mu.Unlock()

	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	out := make(chan Update, 8)
	go p.loop(ctx, r, req, out)
	return out
}

// Stop halts the current run, if any, and waits for its ticker to stop.
func (p *Poller) Stop() {
	p.mu.Lock()
	r := p.current
	p.current = nil
	p.state = StateIdle
	p.mu.Unlock()

	if r != nil {
		r.cancel()
		<-r.done
	}
}

// State returns the state of the current run.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Active returns the number of live poll tickers.
func (p *Poller) Active() int {
	return int(p.active.Load())
}

func (p *Poller) setState(r *run, s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == r {
		p.state = s
	}
}

func (p *Poller) loop(ctx context.Context, r *run, req OptimizeRequest, out chan<- Update) {
	defer close(r.done)
	defer close(out)
	defer r.cancel()

	ctx = logging.WithRunID(ctx, r.id)

	emit := func(u Update) bool {
		u.RunID = r.id
		if u.JobID == "" {
			u.JobID = r.jobID
		}
		p.setState(r, u.State)
		select {
		case out <- u:
			return true
		case <-r.stop:
			return false
		case <-ctx.Done():
			return false
		}
	}

	if !emit(Update{State: StateSubmitting}) {
		return
	}

	submitted, ok := await(ctx, r, func() (string, error) { return p.api.Optimize(ctx, req) })
	if !ok {
		return
	}
	if submitted.err != nil {
		p.logger.Error().Ctx(ctx).Err(submitted.err).Str("url", req.URL).Msg("submit failed")
		emit(Update{State: StateFailed, Err: submitted.err})
		return
	}

	r.jobID = submitted.val
	ctx = logging.WithJobID(ctx, r.jobID)
	p.logger.Info().Ctx(ctx).Str("url", req.URL).Msg("job submitted")

	ticker := time.NewTicker(p.interval)
	p.active.Add(1)
	tickerStopped := false
	stopTicker := func() {
		if !tickerStopped {
			ticker.Stop()
			p.active.Add(-1)
			tickerStopped = true
		}
	}
	defer stopTicker()

	step := 0
	if !emit(Update{State: StatePolling, Step: step}) {
		return
	}

	results := make(chan checkResult, 4)
	check := func() {
		runID, jobID := r.id, r.jobID
		go func() {
			snap, err := p.api.Job(ctx, jobID)
			select {
			case results <- checkResult{runID: runID, jobID: jobID, snap: snap, err: err}:
			case <-r.stop:
			}
		}()
	}

	check()

	for {
		select {
		case <-r.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		case res := <-results:
			if err := r.accepts(res); err != nil {
				p.logger.Debug().Ctx(ctx).Err(err).Str("stale_job_id", res.jobID).Msg("dropping poll result")
				continue
			}
			if res.err != nil {
				p.logger.Warn().Ctx(ctx).Err(res.err).Msg("poll failed, retrying on next tick")
				continue
			}

			snap := res.snap
			switch snap.Status {
			case StatusFailed:
				stopTicker()
				msg := snap.FailureMessage()
				p.logger.Warn().Ctx(ctx).Str("error", msg).Msg("job failed")
				emit(Update{
					State:    StateFailed,
					Step:     step,
					Snapshot: snap,
					Job:      jobFromSnapshot(snap, "", msg),
					Err:      &JobError{JobID: r.jobID, Message: msg},
				})
				return

			case StatusCompleted:
				stopTicker()
				p.finish(ctx, r, snap, emit)
				return

			default:
				step = ProjectStep(*snap, step)
				if !emit(Update{State: StatePolling, Step: step, Snapshot: snap}) {
					return
				}
			}
		}
	}
}

// finish fetches the results of a completed job and emits the terminal update.
func (p *Poller) finish(ctx context.Context, r *run, snap *JobSnapshot, emit func(Update) bool) {
	fetched, ok := await(ctx, r, func() (*JobResults, error) { return p.api.Results(ctx, r.jobID) })
	if !ok {
		return
	}
	if fetched.err != nil {
		p.logger.Error().Ctx(ctx).Err(fetched.err).Msg("fetch results failed")
		emit(Update{
			State:    StateFailed,
			Step:     CompleteStep,
			Snapshot: snap,
			Job:      jobFromSnapshot(snap, "", fetched.err.Error()),
			Err:      fetched.err,
		})
		return
	}

	job := jobFromSnapshot(snap, fetched.val.FinalMarkdown, "")
	p.logger.Info().Ctx(ctx).Msg("job completed")
	emit(Update{State: StateSucceeded, Step: CompleteStep, Snapshot: snap, Job: job})
}

func jobFromSnapshot(snap *JobSnapshot, content, errMsg string) *Job {
	return &Job{
		ID:             snap.JobID,
		Status:         snap.Status,
		OriginalScore:  snap.OriginalScore,
		OptimizedScore: snap.OptimizedScore,
		Improvement:    Improvement(snap.OriginalScore, snap.OptimizedScore),
		Content:        content,
		Error:          errMsg,
	}
}

type outcome[T any] struct {
	val T
	err error
}

// await runs fn without tying it to the run's lifetime. ok is false when the
// run stopped first; fn's result is then discarded.
func await[T any](ctx context.Context, r *run, fn func() (T, error)) (outcome[T], bool) {
	ch := make(chan outcome[T], 1)
	go func() {
		v, err := fn()
		ch <- outcome[T]{val: v, err: err}
	}()

	select {
	case o := <-ch:
		return o, true
	case <-r.stop:
		return outcome[T]{}, false
	case <-ctx.Done():
		return outcome[T]{}, false
	}
}
