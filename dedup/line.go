package dedup

import (
	"bufio"
	"errors"
	"io"

	"reduction.dev/linedup/util/size"
)

const DefaultDelimiter byte = '\n'

const readBufferSize = 64 * size.KB

// LineReader splits a stream into lines on a single delimiter byte. Lines are
// returned without the delimiter and are freshly allocated, so callers may
// keep them.
type LineReader struct {
	r          *bufio.Reader
	delimiter  byte
	terminated bool
}

func NewLineReader(r io.Reader, delimiter byte) *LineReader {
	return &LineReader{
		r:         bufio.NewReaderSize(r, readBufferSize),
		delimiter: delimiter,
	}
}

// Next returns the next line. ok is false once the input is exhausted. A
// final line without a delimiter is still returned.
func (lr *LineReader) Next() (line []byte, ok bool, err error) {
	b, err := lr.r.ReadBytes(lr.delimiter)
	switch {
	case err == nil:
		lr.terminated = true
		return b[:len(b)-1], true, nil
	case errors.Is(err, io.EOF):
		if len(b) == 0 {
			return nil, false, nil
		}
		lr.terminated = false
		return b, true, nil
	default:
		return nil, false, err
	}
}

// Terminated reports whether the last line returned by Next ended with the
// delimiter.
func (lr *LineReader) Terminated() bool {
	return lr.terminated
}
