package fileu_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reduction.dev/linedup/storage"
	"reduction.dev/linedup/storage/objstore"
	"reduction.dev/linedup/util/fileu"
)

func readAll(t *testing.T, r io.ReadCloser) string {
	t.Helper()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	return string(data)
}

func TestLocalOutput_CommitAndReadBack(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "out.txt")

	out, err := fileu.CreateOutput(ctx, path, fileu.Options{})
	require.NoError(t, err)
	_, err = io.WriteString(out, "a\nb\n")
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist, "not visible before commit")

	require.NoError(t, out.Commit())
	in, err := fileu.OpenInput(ctx, path, fileu.Options{})
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", readAll(t, in))
}

func TestLocalOutput_DiscardLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	out, err := fileu.CreateOutput(context.Background(), filepath.Join(dir, "out.txt"), fileu.Options{})
	require.NoError(t, err)
	_, err = io.WriteString(out, "partial")
	require.NoError(t, err)
	require.NoError(t, out.Discard())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStdio(t *testing.T) {
	ctx := context.Background()
	stdout := &bytes.Buffer{}
	opts := fileu.Options{Stdin: strings.NewReader("in"), Stdout: stdout}

	in, err := fileu.OpenInput(ctx, "-", opts)
	require.NoError(t, err)
	assert.Equal(t, "in", readAll(t, in))

	out, err := fileu.CreateOutput(ctx, "-", opts)
	require.NoError(t, err)
	_, err = io.WriteString(out, "out")
	require.NoError(t, err)
	require.NoError(t, out.Commit())
	assert.Equal(t, "out", stdout.String())
}

func TestS3(t *testing.T) {
	ctx := context.Background()
	client := objstore.NewMemoryS3Service()
	opts := fileu.Options{S3Client: client}

	out, err := fileu.CreateOutput(ctx, "s3://bucket/dir/out.txt", opts)
	require.NoError(t, err)
	_, err = io.WriteString(out, "x\ny\n")
	require.NoError(t, err)
	assert.Equal(t, 0, client.Len(), "nothing uploaded before commit")
	require.NoError(t, out.Commit())
	assert.Equal(t, 1, client.Len())

	data, err := fileu.ReadFile(ctx, "s3://bucket/dir/out.txt", opts)
	require.NoError(t, err)
	assert.Equal(t, "x\ny\n", string(data))

	_, err = fileu.OpenInput(ctx, "s3://bucket/missing", opts)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = fileu.CreateOutput(ctx, "s3://bucket", opts)
	assert.Error(t, err)
}

func TestS3Output_UploadFailure(t *testing.T) {
	client := objstore.NewMemoryS3Service()
	client.FailPuts = true

	out, err := fileu.CreateOutput(context.Background(), "s3://bucket/out.txt", fileu.Options{S3Client: client})
	require.NoError(t, err)
	_, err = io.WriteString(out, "x\n")
	require.NoError(t, err)
	assert.ErrorIs(t, out.Commit(), objstore.ErrInjected)
	assert.NoError(t, out.Discard(), "discard after a failed commit")
}
