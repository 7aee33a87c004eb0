package dedup_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reduction.dev/linedup/dedup"
	"reduction.dev/linedup/storage"
)

func unitContents(t *testing.T, fs storage.FileSystem, set *dedup.SpillSet) []string {
	t.Helper()
	var contents []string
	for _, u := range set.Units {
		r, err := fs.Open(u.URI()).NewReader()
		require.NoError(t, err)
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		contents = append(contents, string(data))
	}
	return contents
}

func TestProducer_SortsEachChunk(t *testing.T) {
	fs := storage.NewMemoryFilesystem()
	p := dedup.NewProducer(dedup.ProducerParams{
		FileSystem:    fs,
		ChunkCapacity: 3,
		Delimiter:     '\n',
	})

	set, err := p.Produce(context.Background(), strings.NewReader("banana\napple\nbanana\ncherry\napple\n"))
	require.NoError(t, err)
	defer set.Release()

	assert.Equal(t, []string{"apple\nbanana\nbanana\n", "apple\ncherry\n"}, unitContents(t, fs, set))
	assert.Equal(t, int64(3), set.Units[0].Lines())
	assert.Equal(t, int64(2), set.Units[1].Lines())
	assert.Equal(t, int64(5), set.LinesRead)
	assert.True(t, set.Terminated)
}

func TestProducer_BTreeCollapsesDuplicatesInChunk(t *testing.T) {
	fs := storage.NewMemoryFilesystem()
	p := dedup.NewProducer(dedup.ProducerParams{
		FileSystem:    fs,
		ChunkCapacity: 3,
		Strategy:      dedup.StrategyBTree,
		Delimiter:     '\n',
	})

	set, err := p.Produce(context.Background(), strings.NewReader("banana\napple\nbanana\ncherry\napple\n"))
	require.NoError(t, err)
	defer set.Release()

	assert.Equal(t, []string{"apple\nbanana\n", "apple\ncherry\n"}, unitContents(t, fs, set),
		"the capacity still counts lines read, not distinct lines")
}

func TestProducer_UnterminatedFinalLineIsSpilledWithDelimiter(t *testing.T) {
	fs := storage.NewMemoryFilesystem()
	p := dedup.NewProducer(dedup.ProducerParams{FileSystem: fs, ChunkCapacity: 10, Delimiter: '\n'})

	set, err := p.Produce(context.Background(), strings.NewReader("b\na"))
	require.NoError(t, err)
	defer set.Release()

	assert.Equal(t, []string{"a\nb\n"}, unitContents(t, fs, set))
	assert.False(t, set.Terminated)
}

func TestProducer_EmptyInput(t *testing.T) {
	fs := storage.NewMemoryFilesystem()
	p := dedup.NewProducer(dedup.ProducerParams{FileSystem: fs, ChunkCapacity: 10, Delimiter: '\n'})

	set, err := p.Produce(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Empty(t, set.Units)
	assert.Equal(t, 0, fs.Len())
}

func TestProducer_UniqueSpillNames(t *testing.T) {
	fs := storage.NewMemoryFilesystem()
	p := dedup.NewProducer(dedup.ProducerParams{FileSystem: fs, ChunkCapacity: 1, Delimiter: '\n'})

	set, err := p.Produce(context.Background(), strings.NewReader("a\nb\nc\nd\n"))
	require.NoError(t, err)
	defer set.Release()

	seen := map[string]bool{}
	for _, u := range set.Units {
		name := fs.Open(u.URI()).Name()
		assert.True(t, strings.HasPrefix(name, dedup.SpillPrefix))
		assert.False(t, seen[name], "duplicate spill name %s", name)
		seen[name] = true
	}
	assert.Len(t, seen, 4)
}

func TestProducer_PanicsOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() {
		dedup.NewProducer(dedup.ProducerParams{FileSystem: storage.NewMemoryFilesystem()})
	})
}

func TestSpillSet_ReleaseIsIdempotent(t *testing.T) {
	fs := storage.NewMemoryFilesystem()
	p := dedup.NewProducer(dedup.ProducerParams{FileSystem: fs, ChunkCapacity: 1, Delimiter: '\n'})

	set, err := p.Produce(context.Background(), strings.NewReader("a\nb\n"))
	require.NoError(t, err)
	require.Equal(t, 2, fs.Len())

	assert.Equal(t, 0, set.Release())
	assert.Equal(t, 0, set.Release())
	assert.Equal(t, 0, fs.Len())
	for _, u := range set.Units {
		assert.True(t, u.Released())
	}
}
