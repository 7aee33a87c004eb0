package telemetry_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reduction.dev/linedup/dedup"
	"reduction.dev/linedup/telemetry"
)

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetricsServer(t *testing.T) {
	s, err := telemetry.ListenMetrics("127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	p := telemetry.NewProgress(telemetry.ProgressParams{Writer: io.Discard})
	p.LinesProcessed(dedup.PhaseChunk, 42)

	assert.Contains(t, get(t, "http://"+s.Addr()+"/metrics"), `linedup_phase_lines{phase="chunk"} 42`)
	assert.Contains(t, get(t, "http://"+s.Addr()+"/metrics/core"), "linedup_lines_read_total")
}

func TestListenMetrics_BadAddress(t *testing.T) {
	_, err := telemetry.ListenMetrics("not-an-address")
	assert.Error(t, err)
}
