// Package telemetry reports the progress of a run and serves its metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	prometheus.MustRegister(phaseLines)
	prometheus.MustRegister(phaseDuration)
}

var (
	phaseLines = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "linedup_phase_lines",
			Help: "Lines processed so far in each phase of the current run",
		},
		[]string{"phase"},
	)

	phaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linedup_phase_duration_seconds",
			Help:    "Time from the first to the last line processed in a phase",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"phase"},
	)
)
