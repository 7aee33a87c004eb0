package dedup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	ErrUnordered = errors.New("line out of order")
	ErrDuplicate = errors.New("duplicate line")
)

// Verify checks that every line of r is strictly greater than the line before
// it, which holds for any output of Run. It returns the number of lines read.
// The first violation is reported with its 1-based line number.
func Verify(ctx context.Context, r io.Reader, delimiter byte) (int64, error) {
	reader := NewLineReader(r, delimiter)
	var previous []byte
	var count int64
	for {
		line, ok, err := reader.Next()
		if err != nil {
			return count, fmt.Errorf("%w: %w", ErrInput, err)
		}
		if !ok {
			return count, nil
		}
		count++
		if count%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return count, err
			}
		}

		if count > 1 {
			switch c := bytes.Compare(previous, line); {
			case c == 0:
				return count, fmt.Errorf("%w at line %d", ErrDuplicate, count)
			case c > 0:
				return count, fmt.Errorf("%w at line %d", ErrUnordered, count)
			}
		}
		previous = line
	}
}
