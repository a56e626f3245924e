package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	logger := Component("commits")
	logger.Info().Msg("fetched page")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "commits", entry["cmp"])
	assert.Equal(t, "fetched page", entry["message"])
}

func TestComponent_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	ctx := WithJobID(WithRunID(context.Background(), "run-1"), "job-1")

	logger := Component("poller")
	logger.Warn().Ctx(ctx).Msg("poll failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "poller", entry["cmp"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "job-1", entry["job_id"])
}
