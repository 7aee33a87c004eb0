package dedup

import (
	"bytes"
	"context"
	"iter"
	"slices"

	"golang.org/x/sync/errgroup"
	"reduction.dev/linedup/util/ds"
)

// Below this many lines per worker a single-threaded sort is faster than
// splitting and merging.
const minLinesPerSortWorker = 8 * 1024

// parallelSort sorts lines by byte order using up to workers goroutines and
// returns them in that order. The slice is cut into contiguous segments, each
// sorted in place on its own goroutine, and the returned sequence merges the
// segments as it is iterated. The sequence is only valid while lines is
// unmodified.
func parallelSort(ctx context.Context, lines [][]byte, workers int) (iter.Seq[[]byte], error) {
	workers = min(workers, len(lines)/minLinesPerSortWorker)
	if workers <= 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slices.SortFunc(lines, bytes.Compare)
		return slices.Values(lines), nil
	}

	segmentLen := (len(lines) + workers - 1) / workers
	segments := make([][][]byte, 0, workers)
	for start := 0; start < len(lines); start += segmentLen {
		segments = append(segments, lines[start:min(start+segmentLen, len(lines))])
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, segment := range segments {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slices.SortFunc(segment, bytes.Compare)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergeSegments(segments), nil
}

// mergeSegments k-way merges sorted segments, yielding lines straight from the
// heap so no merged copy of the chunk is built.
func mergeSegments(segments [][][]byte) iter.Seq[[]byte] {
	type cursor struct {
		segment [][]byte
		pos     int
	}

	return func(yield func([]byte) bool) {
		heap := ds.NewHeap(func(a, b *cursor) int {
			return bytes.Compare(a.segment[a.pos], b.segment[b.pos])
		}, len(segments))
		for _, s := range segments {
			if len(s) > 0 {
				heap.Push(&cursor{segment: s})
			}
		}

		for {
			c, ok := heap.Pop()
			if !ok {
				return
			}
			if !yield(c.segment[c.pos]) {
				return
			}
			c.pos++
			if c.pos < len(c.segment) {
				heap.Push(c)
			}
		}
	}
}
