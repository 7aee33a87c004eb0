package dedup_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reduction.dev/linedup/dedup"
	"reduction.dev/linedup/storage"
)

func TestVerify(t *testing.T) {
	ctx := context.Background()

	n, err := dedup.Verify(ctx, strings.NewReader("apple\nbanana\ncherry\n"), '\n')
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = dedup.Verify(ctx, strings.NewReader(""), '\n')
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = dedup.Verify(ctx, strings.NewReader("a\nb\nb\n"), '\n')
	assert.ErrorIs(t, err, dedup.ErrDuplicate)
	assert.ErrorContains(t, err, "line 3")

	_, err = dedup.Verify(ctx, strings.NewReader("b\na\n"), '\n')
	assert.ErrorIs(t, err, dedup.ErrUnordered)
	assert.ErrorContains(t, err, "line 2")
}

func TestVerify_AcceptsRunOutput(t *testing.T) {
	out, _ := run(t, "q\nw\ne\nr\nt\ny\nq\nw\ne\n", 2, dedup.StrategySort)

	n, err := dedup.Verify(context.Background(), strings.NewReader(out), '\n')
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	fs := storage.NewMemoryFilesystem()
	for _, name := range []string{"chunk_a.tmp", "chunk_b.tmp", "chunk_c.txt", "other.tmp"} {
		f := fs.New(name)
		_, err := f.Write([]byte("x\n"))
		require.NoError(t, err)
		require.NoError(t, f.Save())
	}

	matched, err := dedup.Sweep(ctx, fs, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"memory:///chunk_a.tmp", "memory:///chunk_b.tmp"}, matched)
	assert.Equal(t, 4, fs.Len(), "dry run keeps files")

	matched, err = dedup.Sweep(ctx, fs, false)
	require.NoError(t, err)
	assert.Len(t, matched, 2)
	assert.Equal(t, 2, fs.Len())
	assert.True(t, fs.Exists("chunk_c.txt"))
	assert.True(t, fs.Exists("other.tmp"))
}
