package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"reduction.dev/linedup/clocks"
	"reduction.dev/linedup/dedup"
)

var phases = []dedup.Phase{dedup.PhaseChunk, dedup.PhaseMerge}

type phaseProgress struct {
	lines   atomic.Int64
	started atomic.Bool
	// Unix nanos of the first and latest update.
	first atomic.Int64
	last  atomic.Int64
	gauge prometheus.Gauge
}

type ProgressParams struct {
	// Where reports are printed. Defaults to stderr.
	Writer io.Writer
	// How often Start prints a report. Defaults to one second.
	Interval time.Duration
	// Defaults to the system clock.
	Clock clocks.Clock
}

// Progress is a dedup.Observer that keeps a running line count per phase. It
// prints the counts periodically and exports them as prometheus gauges.
type Progress struct {
	out      io.Writer
	interval time.Duration
	clock    clocks.Clock
	phases   map[dedup.Phase]*phaseProgress

	// Serializes writes to out.
	mu       sync.Mutex
	finished bool
}

func NewProgress(params ProgressParams) *Progress {
	if params.Writer == nil {
		params.Writer = os.Stderr
	}
	if params.Interval == 0 {
		params.Interval = time.Second
	}
	if params.Clock == nil {
		params.Clock = clocks.NewSystemClock()
	}

	p := &Progress{
		out:      params.Writer,
		interval: params.Interval,
		clock:    params.Clock,
		phases:   make(map[dedup.Phase]*phaseProgress, len(phases)),
	}
	for _, phase := range phases {
		gauge := phaseLines.WithLabelValues(string(phase))
		gauge.Set(0)
		p.phases[phase] = &phaseProgress{gauge: gauge}
	}
	return p
}

func (p *Progress) LinesProcessed(phase dedup.Phase, total int64) {
	pp, ok := p.phases[phase]
	if !ok {
		return
	}
	now := p.clock.Now().UnixNano()
	pp.last.Store(now)
	if !pp.started.Load() && pp.started.CompareAndSwap(false, true) {
		pp.first.Store(now)
	}

	// Totals only grow, so a lower value is a stale update.
	for {
		current := pp.lines.Load()
		if total <= current {
			return
		}
		if pp.lines.CompareAndSwap(current, total) {
			pp.gauge.Set(float64(total))
			return
		}
	}
}

// Lines returns the latest count reported for the phase.
func (p *Progress) Lines(phase dedup.Phase) int64 {
	pp, ok := p.phases[phase]
	if !ok {
		return 0
	}
	return pp.lines.Load()
}

// ReportLabel names the periodic report for clocks.FrozenClock.TickEvery.
const ReportLabel = "progress-report"

// Start prints a report every interval until ctx is done.
func (p *Progress) Start(ctx context.Context) {
	ticker := p.clock.Every(p.interval, p.Report, ReportLabel)
	context.AfterFunc(ctx, ticker.Stop)
}

// Report prints the current count of every started phase.
func (p *Progress) Report() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	for _, phase := range phases {
		pp := p.phases[phase]
		if !pp.started.Load() {
			continue
		}
		fmt.Fprintf(p.out, "%s %d lines\n", cyan(fmt.Sprintf("%-6s", phase)), pp.lines.Load())
	}
}

// Finish records phase durations and prints a summary. Only the first call
// has any effect.
func (p *Progress) Finish(stats dedup.Stats, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.finished = true

	for _, phase := range phases {
		pp := p.phases[phase]
		if !pp.started.Load() {
			continue
		}
		elapsed := time.Duration(pp.last.Load() - pp.first.Load())
		phaseDuration.WithLabelValues(string(phase)).Observe(elapsed.Seconds())
	}

	if err != nil {
		fmt.Fprintf(p.out, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("failed"), err)
		return
	}
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(p.out, "%s read %d lines, wrote %d, dropped %s duplicates in %d spill units\n",
		green("done"), stats.LinesRead, stats.LinesWritten, yellow(stats.Duplicates), stats.SpillUnits)
	if stats.LeakedUnits > 0 {
		fmt.Fprintf(p.out, "%s %d spill units could not be deleted\n", yellow("warning"), stats.LeakedUnits)
	}
}

var _ dedup.Observer = (*Progress)(nil)
