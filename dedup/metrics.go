package dedup

import "github.com/VictoriaMetrics/metrics"

var (
	linesReadCounter     = metrics.NewCounter("linedup_lines_read_total")
	spillUnitsCounter    = metrics.NewCounter("linedup_spill_units_total")
	spillBytesCounter    = metrics.NewCounter("linedup_spill_bytes_total")
	linesWrittenCounter  = metrics.NewCounter("linedup_lines_written_total")
	duplicatesCounter    = metrics.NewCounter("linedup_duplicates_total")
	cleanupErrorsCounter = metrics.NewCounter("linedup_cleanup_errors_total")
)

// ResetMetrics zeroes the core counters.
func ResetMetrics() {
	linesReadCounter.Set(0)
	spillUnitsCounter.Set(0)
	spillBytesCounter.Set(0)
	linesWrittenCounter.Set(0)
	duplicatesCounter.Set(0)
	cleanupErrorsCounter.Set(0)
}
