package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reduction.dev/linedup/logging"
)

func TestTextHandler_ComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewTextHandlerWithWriter(&buf)).
		With("component", "merge", "run", "r1")

	logger.Info("merged units", "units", 3, "path", "a b")

	line := buf.String()
	assert.Contains(t, line, "INFO [merge] merged units")
	assert.Contains(t, line, " run=r1")
	assert.Contains(t, line, " units=3")
	assert.Contains(t, line, ` path="a b"`, "values with spaces are quoted")
}

func TestTextHandler_PrintsRecordTime(t *testing.T) {
	var buf bytes.Buffer
	h := logging.NewTextHandlerWithWriter(&buf)

	at := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	require.NoError(t, h.Handle(context.Background(), slog.NewRecord(at, slog.LevelInfo, "spilled chunk", 0)))
	assert.Equal(t, "2026/01/02 15:04:05 INFO [root] spilled chunk\n", buf.String())
}

func TestTextHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewTextHandlerWithWriter(&buf)).WithGroup("s3")

	logger.Info("upload", "bucket", "b")
	assert.Contains(t, buf.String(), " s3.bucket=b")
}

func TestTextHandler_Level(t *testing.T) {
	defer logging.SetLevel(slog.LevelInfo)

	var buf bytes.Buffer
	logger := slog.New(logging.NewTextHandlerWithWriter(&buf))

	logging.SetLevel(slog.LevelWarn)
	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "WARN [root] shown")
}

func TestParseLevel(t *testing.T) {
	level, err := logging.ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = logging.ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	_, err = logging.ParseLevel("loud")
	assert.Error(t, err)
}
