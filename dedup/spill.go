package dedup

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/segmentio/ksuid"
	"reduction.dev/linedup/storage"
)

// Spill units are named chunk_<ksuid>.tmp. The prefix is how orphaned units
// from an interrupted run are found again.
const (
	SpillPrefix = "chunk_"
	spillSuffix = ".tmp"
)

func newSpillName() string {
	return SpillPrefix + ksuid.New().String() + spillSuffix
}

// A SpillUnit is one sorted chunk saved to storage: lines in non-decreasing
// order, each followed by the delimiter, with no header or index.
//
// A unit deletes its file when released. If it is garbage collected without
// being released the file is deleted by a runtime cleanup, so abandoned units
// don't outlive the process that created them for long.
type SpillUnit struct {
	file     storage.File
	lines    int64
	cleanup  runtime.Cleanup
	released atomic.Bool
}

func newSpillUnit(file storage.File, lines int64) *SpillUnit {
	u := &SpillUnit{file: file, lines: lines}
	u.cleanup = runtime.AddCleanup(u, func(deleteFile func() error) {
		if err := deleteFile(); err != nil {
			cleanupErrorsCounter.Inc()
			slog.Error("spill unit cleanup", "err", err)
		}
	}, file.CreateDeleteFunc())
	return u
}

// Lines is the number of lines written to the unit.
func (u *SpillUnit) Lines() int64 { return u.lines }

// Size is the number of bytes written to the unit.
func (u *SpillUnit) Size() int64 { return u.file.Size() }

func (u *SpillUnit) URI() string { return u.file.URI() }

// Released reports whether Release has been called.
func (u *SpillUnit) Released() bool { return u.released.Load() }

// Release deletes the unit's file. It is safe to call more than once; only
// the first call deletes.
func (u *SpillUnit) Release() error {
	if !u.released.CompareAndSwap(false, true) {
		return nil
	}
	u.cleanup.Stop()
	if err := u.file.Delete(); err != nil {
		cleanupErrorsCounter.Inc()
		return fmt.Errorf("deleting spill unit %s: %w", u.file.URI(), err)
	}
	return nil
}

// writeSpillUnit saves sorted lines as a new spill unit. On failure the
// partial file is discarded.
func writeSpillUnit(fs storage.FileSystem, lines iter.Seq[[]byte], delimiter byte) (*SpillUnit, error) {
	f := fs.New(newSpillName())
	unit, err := writeLines(f, lines, delimiter)
	if err != nil {
		if discardErr := f.Delete(); discardErr != nil {
			slog.Warn("discarding partial spill unit", "name", f.Name(), "err", discardErr)
		}
		return nil, err
	}
	return unit, nil
}

func writeLines(f storage.File, lines iter.Seq[[]byte], delimiter byte) (*SpillUnit, error) {
	w := bufio.NewWriterSize(f, readBufferSize)
	var count int64
	for line := range lines {
		if _, err := w.Write(line); err != nil {
			return nil, err
		}
		if err := w.WriteByte(delimiter); err != nil {
			return nil, err
		}
		count++
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	if err := f.Save(); err != nil {
		return nil, err
	}

	spillUnitsCounter.Inc()
	spillBytesCounter.Add(int(f.Size()))
	return newSpillUnit(f, count), nil
}

// SpillSet is the output of the chunk phase and the input of the merge phase.
type SpillSet struct {
	// Units in creation order.
	Units []*SpillUnit
	// Terminated reports whether the final input line ended with the delimiter.
	Terminated bool
	// Lines read from the input. Can exceed Lines when chunks collapse
	// duplicates before spilling.
	LinesRead int64

	logger *slog.Logger
}

// Lines is the total number of lines across all units.
func (s *SpillSet) Lines() int64 {
	var total int64
	for _, u := range s.Units {
		total += u.Lines()
	}
	return total
}

// Release deletes every unit that hasn't been released yet and returns how
// many could not be deleted. Failures only leak storage, so they are logged
// rather than returned.
func (s *SpillSet) Release() (leaked int) {
	for _, u := range s.Units {
		if err := u.Release(); err != nil {
			s.logger.Warn("leaked spill unit", "err", err)
			leaked++
		}
	}
	return leaked
}

type sourceState int

const (
	sourceUnopened sourceState = iota
	sourcePending
	sourceExhausted
	sourceClosed
)

// spillSource reads one unit sequentially during the merge. It moves through
// unopened, pending, exhausted and closed and never moves back.
type spillSource struct {
	unit   *SpillUnit
	state  sourceState
	body   io.ReadCloser
	reader *LineReader
}

func (s *spillSource) open(delimiter byte) error {
	if s.state != sourceUnopened {
		panic("spill source opened twice")
	}
	body, err := s.unit.file.NewReader()
	if err != nil {
		return err
	}
	s.body = body
	s.reader = NewLineReader(body, delimiter)
	s.state = sourcePending
	return nil
}

// next reads the following line. ok is false once the unit is exhausted.
func (s *spillSource) next() (line []byte, ok bool, err error) {
	if s.state != sourcePending {
		return nil, false, nil
	}
	line, ok, err = s.reader.Next()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		s.state = sourceExhausted
	}
	return line, ok, nil
}

func (s *spillSource) close() error {
	if s.state == sourceUnopened || s.state == sourceClosed {
		s.state = sourceClosed
		return nil
	}
	s.state = sourceClosed
	s.reader = nil
	return s.body.Close()
}
