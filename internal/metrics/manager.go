// Package metrics exposes prometheus instruments for the sync engine and the
// session lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "gymplanner"
	Subsystem = "core"
)

type Manager struct {
	// counters
	CounterSnapshots  *prometheus.CounterVec
	CounterWrites     *prometheus.CounterVec
	CounterCoalesced  prometheus.Counter
	CounterReadErrors prometheus.Counter
	CounterSessions   *prometheus.CounterVec

	// gauges
	GaugePhase prometheus.Gauge

	// histograms
	HistWriteDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager(Namespace, "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager(Namespace, "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterSnapshots := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "snapshots",
		Help:      "Remote snapshots received, by outcome (ingested, deferred, superseded, not_found)",
	}, []string{"result"})
	counterWrites := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "writes",
		Help:      "Remote writes, by outcome (ok, failed, suppressed)",
	}, []string{"result"})
	counterCoalesced := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "writes_coalesced",
		Help:      "Write requests folded into an already armed debounce",
	})
	counterReadErrors := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "read_errors",
		Help:      "Errors reported by the remote subscription",
	})
	counterSessions := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sessions",
		Help:      "Workout sessions, by transition (started, resumed, finished, discarded)",
	}, []string{"transition"})

	gaugePhase := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sync_phase",
		Help:      "0 unlinked, 1 awaiting first snapshot, 2 synced",
	})

	histWriteDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		Name:      "write_duration_seconds",
		Help:      "Duration of a single remote write in seconds",
	})

	return &Manager{
		CounterSnapshots:  counterSnapshots,
		CounterWrites:     counterWrites,
		CounterCoalesced:  counterCoalesced,
		CounterReadErrors: counterReadErrors,
		CounterSessions:   counterSessions,
		GaugePhase:        gaugePhase,
		HistWriteDuration: histWriteDuration,
	}
}
