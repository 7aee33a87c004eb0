package dedup

// Phase names a stage of a run for progress reporting.
type Phase string

const (
	PhaseChunk Phase = "chunk"
	PhaseMerge Phase = "merge"
)

// Observer receives the running count of lines processed in a phase. It is
// called from the goroutine running the phase after every line and must be
// cheap.
type Observer interface {
	LinesProcessed(phase Phase, total int64)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(phase Phase, total int64)

func (f ObserverFunc) LinesProcessed(phase Phase, total int64) {
	f(phase, total)
}

type nopObserver struct{}

func (nopObserver) LinesProcessed(Phase, int64) {}
