package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reduction.dev/linedup/dedup"
)

type result struct {
	stdout string
	stderr string
	err    error
}

func runApp(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	app := newApp(strings.NewReader(stdin), stdout, stderr)
	err := app.RunContext(context.Background(), append([]string{"linedup"}, args...))
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRun_Stdio(t *testing.T) {
	r := runApp(t, "banana\napple\nbanana\ncherry\napple\n",
		"run", "--temp-location", "memory://", "--chunk-capacity", "3")
	require.NoError(t, r.err)
	assert.Equal(t, "apple\nbanana\ncherry\n", r.stdout)
	assert.Contains(t, r.stderr, "run complete")
}

func TestRun_PositionalPaths(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.txt")
	tmp := filepath.Join(dir, "spill")
	writeFile(t, in, "c\nb\na\nb\nc")

	r := runApp(t, "", "run", "-t", tmp, "-n", "2", "--chunk-strategy", "btree", in, out)
	require.NoError(t, r.err)
	assert.Equal(t, "a\nb\nc", readFile(t, out))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "spill units are deleted")
}

func TestRun_ConfigFileEnvAndFlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "linedup.yaml")
	writeFile(t, cfg, "temp_location: memory://\ndelimiter: ';'\nchunk_capacity: 2\nlog_level: warn\n")
	t.Setenv("LINEDUP_DELIMITER", ",")

	r := runApp(t, "b,a,b,", "run", "--config", cfg)
	require.NoError(t, r.err)
	assert.Equal(t, "a,b,", r.stdout, "the environment overrides the config file")
	assert.NotContains(t, r.stderr, "run complete", "log level from the config file")

	r = runApp(t, "b|a|b|", "run", "--config", cfg, "--delimiter", "|")
	require.NoError(t, r.err)
	assert.Equal(t, "a|b|", r.stdout, "flags override the environment")
}

func TestRun_Progress(t *testing.T) {
	r := runApp(t, "b\na\n", "run", "-t", "memory://", "--progress")
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, "read 2 lines, wrote 2")
}

func TestRun_MissingInputCreatesNoOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")

	r := runApp(t, "", "run", "-t", "memory://", filepath.Join(dir, "missing.txt"), out)
	require.ErrorIs(t, r.err, dedup.ErrInput)
	_, err := os.Stat(out)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_InvalidConfig(t *testing.T) {
	r := runApp(t, "", "run", "-t", "memory://", "--chunk-capacity", "0", "--chunk-strategy", "radix")
	require.ErrorIs(t, r.err, dedup.ErrConfig)
	assert.ErrorContains(t, r.err, "chunk capacity")
	assert.ErrorContains(t, r.err, "radix")

	r = runApp(t, "", "run", "a", "b", "c")
	assert.ErrorIs(t, r.err, dedup.ErrConfig)
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	bad := filepath.Join(dir, "bad.txt")
	writeFile(t, good, "a\nb\nc\n")
	writeFile(t, bad, "a\nc\nb\n")

	r := runApp(t, "", "verify", good)
	require.NoError(t, r.err)
	assert.Equal(t, good+": 3 lines, sorted and distinct\n", r.stdout)

	r = runApp(t, "", "verify", bad)
	assert.ErrorIs(t, r.err, dedup.ErrUnordered)

	r = runApp(t, "x\nx\n", "verify")
	assert.ErrorIs(t, r.err, dedup.ErrDuplicate)
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "chunk_orphan.tmp"), "x\n")
	writeFile(t, filepath.Join(dir, "keep.txt"), "x\n")

	r := runApp(t, "", "sweep", "--temp-location", dir, "--dry-run")
	require.NoError(t, r.err)
	assert.Equal(t, filepath.Join(dir, "chunk_orphan.tmp")+"\n", r.stdout)

	r = runApp(t, "", "sweep", "--temp-location", dir)
	require.NoError(t, r.err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "keep.txt", entries[0].Name())
}
