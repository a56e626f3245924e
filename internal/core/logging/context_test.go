package logging

import (
	"context"
	"testing"
)

func TestWithRunID(t *testing.T) {
	ctx := context.Background()
	runID := "3f1c-run"

	ctx = WithRunID(ctx, runID)
	got := GetRunID(ctx)

	if got != runID {
		t.Errorf("GetRunID() = %q, want %q", got, runID)
	}
}

func TestWithJobID(t *testing.T) {
	ctx := context.Background()
	jobID := "job-456"

	ctx = WithJobID(ctx, jobID)
	got := GetJobID(ctx)

	if got != jobID {
		t.Errorf("GetJobID() = %q, want %q", got, jobID)
	}
}

func TestGetRunID_NotPresent(t *testing.T) {
	if got := GetRunID(context.Background()); got != "" {
		t.Errorf("GetRunID() = %q, want empty string", got)
	}
}

func TestGetJobID_NotPresent(t *testing.T) {
	if got := GetJobID(context.Background()); got != "" {
		t.Errorf("GetJobID() = %q, want empty string", got)
	}
}
