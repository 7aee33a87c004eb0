package dedup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"reduction.dev/linedup/storage"
)

type Params struct {
	Input  io.Reader
	Output io.Writer
	// Temporary storage for spill units.
	FileSystem    storage.FileSystem
	ChunkCapacity int
	Strategy      ChunkStrategy
	SortWorkers   int
	// The record separator. The zero value is NUL, so callers wanting newline
	// framing must set DefaultDelimiter.
	Delimiter byte
	Observer  Observer
	Logger    *slog.Logger
}

func (p Params) Validate() error {
	var err error
	if p.Input == nil {
		err = errors.Join(err, errors.New("input is required"))
	}
	if p.Output == nil {
		err = errors.Join(err, errors.New("output is required"))
	}
	if p.FileSystem == nil {
		err = errors.Join(err, errors.New("temporary storage is required"))
	}
	if p.ChunkCapacity < 1 {
		err = errors.Join(err, fmt.Errorf("chunk capacity must be at least 1, got %d", p.ChunkCapacity))
	}
	if _, parseErr := ParseChunkStrategy(string(p.Strategy)); parseErr != nil {
		err = errors.Join(err, parseErr)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}

type Stats struct {
	SpillUnits   int
	LinesRead    int64
	LinesWritten int64
	Duplicates   int64
	// Spill units that could not be deleted after the run.
	LeakedUnits int
}

// Run sorts and deduplicates Input into Output. The merge starts only after
// every chunk has been sorted and spilled. Spill units are released whether
// the run succeeds or fails. Run does not close Output.
func Run(ctx context.Context, params Params) (stats Stats, err error) {
	if err := params.Validate(); err != nil {
		return stats, err
	}
	if params.Logger == nil {
		params.Logger = slog.Default()
	}

	producer := NewProducer(ProducerParams{
		FileSystem:    params.FileSystem,
		ChunkCapacity: params.ChunkCapacity,
		Strategy:      params.Strategy,
		SortWorkers:   params.SortWorkers,
		Delimiter:     params.Delimiter,
		Observer:      params.Observer,
		Logger:        params.Logger,
	})
	set, err := producer.Produce(ctx, params.Input)
	if err != nil {
		return stats, err
	}
	defer func() {
		stats.LeakedUnits = set.Release()
	}()
	stats.SpillUnits = len(set.Units)
	stats.LinesRead = set.LinesRead

	merger := NewMerger(MergerParams{
		Delimiter: params.Delimiter,
		Observer:  params.Observer,
		Logger:    params.Logger,
	})
	mergeStats, err := merger.Merge(ctx, set, params.Output)
	stats.LinesWritten = mergeStats.LinesWritten
	if err != nil {
		return stats, err
	}
	// Includes duplicates collapsed inside chunks, which the merge never sees.
	stats.Duplicates = stats.LinesRead - stats.LinesWritten
	return stats, nil
}
