package geo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterval = 10 * time.Millisecond

// fakeJobAPI scripts job snapshots per job id. Each Job call pops the next
// snapshot; the last one repeats.
type fakeJobAPI struct {
	mu        sync.Mutex
	submitted int
	submitErr error
	snapshots map[string][]JobSnapshot
	jobErrs   map[string][]error
	gates     map[string]chan struct{}
	results   map[string]*JobResults
	resultErr error

	jobCalls    map[string]int
	resultCalls int
}

func newFakeJobAPI() *fakeJobAPI {
	return &fakeJobAPI{
		snapshots: map[string][]JobSnapshot{},
		jobErrs:   map[string][]error{},
		gates:     map[string]chan struct{}{},
		results:   map[string]*JobResults{},
		jobCalls:  map[string]int{},
	}
}

func (f *fakeJobAPI) Optimize(_ context.Context, _ OptimizeRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted++
	return fmt.Sprintf("job-%d", f.submitted), nil
}

func (f *fakeJobAPI) Job(_ context.Context, id string) (*JobSnapshot, error) {
	f.mu.Lock()
	gate := f.gates[id]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobCalls[id]++

	if errs := f.jobErrs[id]; len(errs) > 0 {
		err := errs[0]
		f.jobErrs[id] = errs[1:]
		if err != nil {
			return nil, err
		}
	}

	snaps := f.snapshots[id]
	if len(snaps) == 0 {
		return &JobSnapshot{JobID: id, Status: StatusRunning}, nil
	}
	snap := snaps[0]
	if len(snaps) > 1 {
		f.snapshots[id] = snaps[1:]
	}
	snap.JobID = id
	return &snap, nil
}

func (f *fakeJobAPI) Results(_ context.Context, id string) (*JobResults, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resultCalls++
	if f.resultErr != nil {
		return nil, f.resultErr
	}
	if r, ok := f.results[id]; ok {
		return r, nil
	}
	return &JobResults{JobID: id}, nil
}

func (f *fakeJobAPI) calls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobCalls[id]
}

func newTestPoller(api JobAPI) *Poller {
	n := 0
	var mu sync.Mutex
	return NewPoller(api, PollerOptions{
		Interval: testInterval,
		NewRunID: func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("run-%d", n)
		},
	})
}

// drain collects updates until the channel closes.
func drain(t *testing.T, ch <-chan Update) []Update {
	t.Helper()
	var got []Update
	timeout := time.After(2 * time.Second)
	for {
		select {
		case u, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, u)
		case <-timeout:
			t.Fatalf("updates not closed; got %d so far", len(got))
			return got
		}
	}
}

// waitFor reads updates until one satisfies match.
func waitFor(t *testing.T, ch <-chan Update, match func(Update) bool) Update {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case u, ok := <-ch:
			require.True(t, ok, "channel closed before expected update")
			if match(u) {
				return u
			}
		case <-timeout:
			t.Fatal("timed out waiting for update")
			return Update{}
		}
	}
}

func TestPoller_CompletedFetchesResults(t *testing.T) {
	api := newFakeJobAPI()
	api.snapshots["job-1"] = []JobSnapshot{
		{Status: StatusRunning},
		{Status: StatusRunning, Industry: ptr("saas")},
		{Status: StatusRunning, Industry: ptr("saas"), TotalChunks: ptr(2), CompletedChunks: ptr(1)},
		{Status: StatusCompleted, Industry: ptr("saas"), OriginalScore: ptr(50.0), OptimizedScore: ptr(75.0)},
	}
	api.results["job-1"] = &JobResults{JobID: "job-1", FinalMarkdown: "# Optimized"}

	p := newTestPoller(api)
	updates := drain(t, p.Submit(context.Background(), OptimizeRequest{URL: "https://example.com"}))

	require.GreaterOrEqual(t, len(updates), 3)
	assert.Equal(t, StateSubmitting, updates[0].State)
	assert.Equal(t, StatePolling, updates[1].State)
	assert.Equal(t, "job-1", updates[1].JobID)

	prev := 0
	for _, u := range updates {
		assert.Equal(t, "run-1", u.RunID)
		assert.GreaterOrEqual(t, u.Step, prev, "step must not regress")
		prev = u.Step
	}

	last := updates[len(updates)-1]
	assert.Equal(t, StateSucceeded, last.State)
	assert.Equal(t, CompleteStep, last.Step)
	require.NotNil(t, last.Job)
	assert.Equal(t, "# Optimized", last.Job.Content)
	require.NotNil(t, last.Job.Improvement)
	assert.InDelta(t, 50.0, *last.Job.Improvement, 1e-9)
	assert.Equal(t, StateSucceeded, p.State())

	// No further status checks after the terminal state. Checks already in
	// flight are allowed to land first.
	time.Sleep(2 * testInterval)
	callsAtEnd := api.calls("job-1")
	time.Sleep(5 * testInterval)
	assert.Equal(t, callsAtEnd, api.calls("job-1"))
	assert.Equal(t, 1, api.resultCalls)
	assert.Zero(t, p.Active())
}

func TestPoller_FailedWithMessage(t *testing.T) {
	tests := []struct {
		name string
		snap JobSnapshot
		want string
	}{
		{"server message", JobSnapshot{Status: StatusFailed, ErrorMessage: ptr("boom")}, "boom"},
		{"fallback message", JobSnapshot{Status: StatusFailed}, "Optimization failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeJobAPI()
			api.snapshots["job-1"] = []JobSnapshot{tt.snap}

			p := newTestPoller(api)
			updates := drain(t, p.Submit(context.Background(), OptimizeRequest{URL: "https://example.com"}))

			last := updates[len(updates)-1]
			assert.Equal(t, StateFailed, last.State)
			require.Error(t, last.Err)
			assert.EqualError(t, last.Err, tt.want)
			assert.ErrorIs(t, last.Err, ErrJobFailed)
			assert.Equal(t, tt.want, last.Job.Error)
			assert.Zero(t, api.resultCalls)
			assert.Zero(t, p.Active())
		})
	}
}

func TestPoller_SubmitFailure(t *testing.T) {
	api := newFakeJobAPI()
	api.submitErr = errors.New("Failed to start optimization")

	p := newTestPoller(api)
	updates := drain(t, p.Submit(context.Background(), OptimizeRequest{URL: "https://example.com"}))

	require.Len(t, updates, 2)
	assert.Equal(t, StateSubmitting, updates[0].State)
	assert.Equal(t, StateFailed, updates[1].State)
	assert.EqualError(t, updates[1].Err, "Failed to start optimization")
	assert.Empty(t, updates[1].JobID)
	assert.Zero(t, p.Active())
}

func TestPoller_PollErrorsRetry(t *testing.T) {
	api := newFakeJobAPI()
	api.jobErrs["job-1"] = []error{errors.New("connection reset"), errors.New("timeout")}
	api.snapshots["job-1"] = []JobSnapshot{{Status: StatusCompleted}}

	p := newTestPoller(api)
	updates := drain(t, p.Submit(context.Background(), OptimizeRequest{URL: "https://example.com"}))

	last := updates[len(updates)-1]
	assert.Equal(t, StateSucceeded, last.State)
	assert.GreaterOrEqual(t, api.calls("job-1"), 3)
	for _, u := range updates {
		assert.NoError(t, u.Err, "poll errors are not surfaced")
	}
}

func TestPoller_MissingScores(t *testing.T) {
	api := newFakeJobAPI()
	api.snapshots["job-1"] = []JobSnapshot{{Status: StatusCompleted, OptimizedScore: ptr(70.0)}}

	p := newTestPoller(api)
	updates := drain(t, p.Submit(context.Background(), OptimizeRequest{URL: "https://example.com"}))

	last := updates[len(updates)-1]
	require.Equal(t, StateSucceeded, last.State)
	assert.Nil(t, last.Job.OriginalScore)
	assert.Nil(t, last.Job.Improvement)
}

func TestPoller_ResultsFailureIsTerminal(t *testing.T) {
	api := newFakeJobAPI()
	api.snapshots["job-1"] = []JobSnapshot{{Status: StatusCompleted}}
	api.resultErr = errors.New("results unavailable")

	p := newTestPoller(api)
	updates := drain(t, p.Submit(context.Background(), OptimizeRequest{URL: "https://example.com"}))

	last := updates[len(updates)-1]
	assert.Equal(t, StateFailed, last.State)
	assert.EqualError(t, last.Err, "results unavailable")
	assert.Zero(t, p.Active())
}

func TestPoller_SecondSubmitLeavesOneTicker(t *testing.T) {
	api := newFakeJobAPI()
	p := newTestPoller(api)

	first := p.Submit(context.Background(), OptimizeRequest{URL: "https://one.example"})
	waitFor(t, first, func(u Update) bool { return u.State == StatePolling })
	assert.Equal(t, 1, p.Active())

	second := p.Submit(context.Background(), OptimizeRequest{URL: "https://two.example"})

	// The first run is stopped without a terminal update.
	for u := range first {
		assert.False(t, u.State.Terminal())
	}

	u := waitFor(t, second, func(u Update) bool { return u.State == StatePolling })
	assert.Equal(t, "job-2", u.JobID)
	assert.Equal(t, "run-2", u.RunID)
	assert.Equal(t, 1, p.Active())

	time.Sleep(2 * testInterval)
	callsAfterSwitch := api.calls("job-1")
	time.Sleep(5 * testInterval)
	assert.Equal(t, callsAfterSwitch, api.calls("job-1"), "superseded job is no longer polled")

	p.Stop()
	assert.Zero(t, p.Active())
	assert.Equal(t, StateIdle, p.State())
}

func TestPoller_StaleResultDiscarded(t *testing.T) {
	api := newFakeJobAPI()
	gate := make(chan struct{})
	api.gates["job-1"] = gate
	api.snapshots["job-1"] = []JobSnapshot{{Status: StatusFailed, ErrorMessage: ptr("stale failure")}}

	p := newTestPoller(api)

	first := p.Submit(context.Background(), OptimizeRequest{URL: "https://one.example"})
	waitFor(t, first, func(u Update) bool { return u.State == StatePolling })

	second := p.Submit(context.Background(), OptimizeRequest{URL: "https://two.example"})
	waitFor(t, second, func(u Update) bool { return u.State == StatePolling })

	// Release the in-flight checks for the superseded job.
	close(gate)

	deadline := time.After(10 * testInterval)
watch:
	for {
		select {
		case u := <-second:
			assert.Equal(t, "job-2", u.JobID)
			assert.NotEqual(t, StateFailed, u.State)
		case <-deadline:
			break watch
		}
	}
	assert.Equal(t, StatePolling, p.State())

	p.Stop()
}

func TestRun_Accepts(t *testing.T) {
	r := newRun("run-2")
	r.jobID = "job-2"

	assert.NoError(t, r.accepts(checkResult{runID: "run-2", jobID: "job-2"}))
	assert.ErrorIs(t, r.accepts(checkResult{runID: "run-1", jobID: "job-1"}), ErrSuperseded)
	assert.ErrorIs(t, r.accepts(checkResult{runID: "run-2", jobID: "job-1"}), ErrSuperseded)
}

func TestPoller_ContextCancelStopsTicker(t *testing.T) {
	api := newFakeJobAPI()
	p := newTestPoller(api)

	ctx, cancel := context.WithCancel(context.Background())
	ch := p.Submit(ctx, OptimizeRequest{URL: "https://example.com"})
	waitFor(t, ch, func(u Update) bool { return u.State == StatePolling })

	cancel()
	drain(t, ch)
	assert.Zero(t, p.Active())
}
