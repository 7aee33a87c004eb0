package dedup

import (
	"context"
	"fmt"
	"strings"

	"reduction.dev/linedup/storage"
)

// Sweep deletes spill units left in fs by runs that exited without releasing
// them, such as after a crash. Files not named like spill units are left
// alone. With dryRun set, matching files are only counted. It returns the URIs
// it matched.
//
// Do not sweep a location that a running process is spilling to.
func Sweep(ctx context.Context, fs storage.FileSystem, dryRun bool) ([]string, error) {
	var swept []string
	for uri, err := range fs.List(SpillPrefix) {
		if err != nil {
			return swept, fmt.Errorf("%w: listing spill units: %w", ErrStorage, err)
		}
		if err := ctx.Err(); err != nil {
			return swept, err
		}
		if !strings.HasSuffix(uri, spillSuffix) {
			continue
		}
		if !dryRun {
			if err := fs.Open(uri).Delete(); err != nil {
				return swept, fmt.Errorf("%w: deleting %s: %w", ErrStorage, uri, err)
			}
		}
		swept = append(swept, uri)
	}
	return swept, nil
}
