package dedup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"reduction.dev/linedup/storage"
)

// Check for cancellation every this many lines.
const cancelCheckInterval = 4096

type ProducerParams struct {
	// Where spill units are written.
	FileSystem storage.FileSystem
	// Maximum number of lines held in memory per chunk.
	ChunkCapacity int
	Strategy      ChunkStrategy
	// Goroutines used to sort one chunk. Defaults to GOMAXPROCS.
	SortWorkers int
	Delimiter   byte
	Observer    Observer
	Logger      *slog.Logger
}

// Producer is the chunk phase: it cuts the input into chunks of bounded line
// count, sorts each chunk and spills it. Chunks are produced one at a time.
type Producer struct {
	fs          storage.FileSystem
	capacity    int
	strategy    ChunkStrategy
	sortWorkers int
	delimiter   byte
	observer    Observer
	logger      *slog.Logger
}

func NewProducer(params ProducerParams) *Producer {
	if params.ChunkCapacity < 1 {
		panic(fmt.Sprintf("chunk capacity must be at least 1, got %d", params.ChunkCapacity))
	}
	if params.SortWorkers < 1 {
		params.SortWorkers = runtime.GOMAXPROCS(0)
	}
	if params.Observer == nil {
		params.Observer = nopObserver{}
	}
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	return &Producer{
		fs:          params.FileSystem,
		capacity:    params.ChunkCapacity,
		strategy:    params.Strategy,
		sortWorkers: params.SortWorkers,
		delimiter:   params.Delimiter,
		observer:    params.Observer,
		logger:      params.Logger.With("component", "producer"),
	}
}

// Produce reads the input to the end and returns the spill units it wrote, in
// creation order. Empty input yields an empty set. On error, every unit
// written so far is released before returning.
func (p *Producer) Produce(ctx context.Context, in io.Reader) (*SpillSet, error) {
	set := &SpillSet{logger: p.logger}
	if err := p.produce(ctx, in, set); err != nil {
		set.Release()
		return nil, err
	}
	p.logger.Info("chunking complete", "linesRead", set.LinesRead, "units", len(set.Units))
	return set, nil
}

func (p *Producer) produce(ctx context.Context, in io.Reader, set *SpillSet) error {
	reader := NewLineReader(in, p.delimiter)
	c := newChunk(p.strategy, p.capacity, p.sortWorkers)

	var total int64
	for {
		if total%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		line, ok, err := reader.Next()
		if err != nil {
			return fmt.Errorf("%w: reading line %d: %w", ErrInput, total+1, err)
		}
		if !ok {
			break
		}

		c.Add(line)
		total++
		set.LinesRead = total
		linesReadCounter.Inc()
		p.observer.LinesProcessed(PhaseChunk, total)

		if c.Len() >= p.capacity {
			if err := p.spill(ctx, c, set); err != nil {
				return err
			}
		}
	}

	if c.Len() > 0 {
		if err := p.spill(ctx, c, set); err != nil {
			return err
		}
	}
	set.Terminated = reader.Terminated()
	return nil
}

// spill seals the chunk, writes it as a new unit and resets the chunk.
func (p *Producer) spill(ctx context.Context, c chunk, set *SpillSet) error {
	defer c.Reset()

	lines, err := c.Sorted(ctx)
	if err != nil {
		return err
	}

	unit, err := writeSpillUnit(p.fs, lines, p.delimiter)
	if err != nil {
		return fmt.Errorf("%w: writing spill unit %d: %w", ErrStorage, len(set.Units), err)
	}
	set.Units = append(set.Units, unit)

	p.logger.Debug("spilled chunk",
		"unit", unit.URI(),
		"linesRead", c.Len(),
		"linesWritten", unit.Lines(),
		"bytes", unit.Size())
	return nil
}
