package dedup

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"reduction.dev/linedup/util/ds"
)

type MergerParams struct {
	Delimiter byte
	Observer  Observer
	Logger    *slog.Logger
}

// Merger is the merge phase: it combines sorted spill units into one sorted
// stream without duplicates.
type Merger struct {
	delimiter byte
	observer  Observer
	logger    *slog.Logger
}

type MergeStats struct {
	// Lines popped from the frontier.
	LinesRead int64
	// Distinct lines written to the output.
	LinesWritten int64
	// Lines dropped because they equal the last written line.
	Duplicates int64
}

func NewMerger(params MergerParams) *Merger {
	if params.Observer == nil {
		params.Observer = nopObserver{}
	}
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	return &Merger{
		delimiter: params.Delimiter,
		observer:  params.Observer,
		logger:    params.Logger.With("component", "merge"),
	}
}

// A frontierEntry is the smallest unconsumed line of one source. The source
// index only locates the reader to advance; it plays no part in ordering.
type frontierEntry struct {
	line   []byte
	source int
}

func compareEntries(a, b frontierEntry) int {
	return bytes.Compare(a.line, b.line)
}

// Merge writes the distinct lines of every unit in the set to out in
// ascending order. Lines are separated by the delimiter and the output ends
// with a delimiter only when the input did. Each unit is released as soon as
// it is exhausted.
//
// Any read or write error aborts the merge, leaving out incomplete.
func (m *Merger) Merge(ctx context.Context, set *SpillSet, out io.Writer) (MergeStats, error) {
	var stats MergeStats

	sources := make([]*spillSource, len(set.Units))
	for i, u := range set.Units {
		sources[i] = &spillSource{unit: u}
	}
	defer func() {
		for _, s := range sources {
			if err := s.close(); err != nil {
				m.logger.Warn("closing spill unit", "unit", s.unit.URI(), "err", err)
			}
		}
	}()

	// There is at most one entry per source in the frontier at any time.
	frontier := ds.NewHeap(compareEntries, len(sources))
	for i, s := range sources {
		if err := s.open(m.delimiter); err != nil {
			return stats, fmt.Errorf("%w: opening spill unit %s: %w", ErrStorage, s.unit.URI(), err)
		}
		if err := m.advance(frontier, sources, i); err != nil {
			return stats, err
		}
	}

	w := bufio.NewWriterSize(out, readBufferSize)
	var lastWritten []byte
	for {
		entry, ok := frontier.Pop()
		if !ok {
			break
		}
		stats.LinesRead++
		if stats.LinesRead%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}

		// Equal lines pop consecutively, so comparing against the last
		// written line alone drops every duplicate.
		if stats.LinesWritten > 0 && bytes.Equal(entry.line, lastWritten) {
			stats.Duplicates++
			duplicatesCounter.Inc()
		} else {
			if err := m.writeLine(w, entry.line, stats.LinesWritten == 0); err != nil {
				return stats, err
			}
			lastWritten = entry.line
			stats.LinesWritten++
			linesWrittenCounter.Inc()
		}
		m.observer.LinesProcessed(PhaseMerge, stats.LinesRead)

		if err := m.advance(frontier, sources, entry.source); err != nil {
			return stats, err
		}
	}

	if stats.LinesWritten > 0 && set.Terminated {
		if err := w.WriteByte(m.delimiter); err != nil {
			return stats, fmt.Errorf("%w: %w", ErrOutput, err)
		}
	}
	if err := w.Flush(); err != nil {
		return stats, fmt.Errorf("%w: flushing output: %w", ErrOutput, err)
	}

	m.logger.Info("merge complete",
		"units", len(sources),
		"linesRead", stats.LinesRead,
		"linesWritten", stats.LinesWritten,
		"duplicates", stats.Duplicates)
	return stats, nil
}

// writeLine writes the delimiter before every line except the first so that
// the terminator of the final line is decided once the merge ends.
func (m *Merger) writeLine(w *bufio.Writer, line []byte, first bool) error {
	if !first {
		if err := w.WriteByte(m.delimiter); err != nil {
			return fmt.Errorf("%w: %w", ErrOutput, err)
		}
	}
	if _, err := w.Write(line); err != nil {
		return fmt.Errorf("%w: %w", ErrOutput, err)
	}
	return nil
}

// advance pushes the next line of source i onto the frontier. An exhausted
// source is closed and its unit released.
func (m *Merger) advance(frontier *ds.Heap[frontierEntry], sources []*spillSource, i int) error {
	s := sources[i]
	line, ok, err := s.next()
	if err != nil {
		return fmt.Errorf("%w: reading spill unit %s: %w", ErrStorage, s.unit.URI(), err)
	}
	if ok {
		frontier.Push(frontierEntry{line: line, source: i})
		return nil
	}

	if err := s.close(); err != nil {
		m.logger.Warn("closing spill unit", "unit", s.unit.URI(), "err", err)
	}
	if err := s.unit.Release(); err != nil {
		m.logger.Warn("leaked spill unit", "err", err)
	}
	return nil
}
