package dedup

import (
	"context"
	"fmt"
	"iter"

	"reduction.dev/linedup/util/ds"
)

// ChunkStrategy selects how a chunk orders its lines.
type ChunkStrategy string

const (
	// StrategySort appends lines to a slice and sorts it when the chunk seals.
	StrategySort ChunkStrategy = "sort"
	// StrategyBTree inserts lines into an ordered set as they are read.
	// Byte-equal lines within a chunk collapse on insert, which shrinks spill
	// units for inputs with many duplicates.
	StrategyBTree ChunkStrategy = "btree"
)

func ParseChunkStrategy(s string) (ChunkStrategy, error) {
	switch ChunkStrategy(s) {
	case StrategySort, "":
		return StrategySort, nil
	case StrategyBTree:
		return StrategyBTree, nil
	default:
		return "", fmt.Errorf("unknown chunk strategy %q", s)
	}
}

// A chunk accumulates lines until it seals. Len counts lines added since the
// last reset, including any collapsed duplicates, so the capacity bound is
// always in lines read.
type chunk interface {
	Add(line []byte)
	Len() int
	// Sorted returns the lines in non-decreasing byte order. The sequence is
	// only valid until Reset.
	Sorted(ctx context.Context) (iter.Seq[[]byte], error)
	Reset()
}

func newChunk(strategy ChunkStrategy, capacity, sortWorkers int) chunk {
	switch strategy {
	case StrategyBTree:
		return &btreeChunk{set: ds.NewSortedSet()}
	default:
		return &sliceChunk{
			lines:   make([][]byte, 0, min(capacity, initialChunkAlloc)),
			workers: sortWorkers,
		}
	}
}

// Cap the up front allocation so small inputs with a huge capacity don't pay
// for it.
const initialChunkAlloc = 64 * 1024

type sliceChunk struct {
	lines   [][]byte
	workers int
}

func (c *sliceChunk) Add(line []byte) {
	c.lines = append(c.lines, line)
}

func (c *sliceChunk) Len() int {
	return len(c.lines)
}

func (c *sliceChunk) Sorted(ctx context.Context) (iter.Seq[[]byte], error) {
	return parallelSort(ctx, c.lines, c.workers)
}

func (c *sliceChunk) Reset() {
	clear(c.lines)
	c.lines = c.lines[:0]
}

type btreeChunk struct {
	set   *ds.SortedSet
	added int
}

func (c *btreeChunk) Add(line []byte) {
	c.set.Insert(line)
	c.added++
}

func (c *btreeChunk) Len() int {
	return c.added
}

func (c *btreeChunk) Sorted(ctx context.Context) (iter.Seq[[]byte], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.set.Ascend(), nil
}

func (c *btreeChunk) Reset() {
	c.set.Clear()
	c.added = 0
}
