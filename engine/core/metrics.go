package core

import (
	"sync"
	"time"

	"github.com/spaghettifunk/dent/engine/containers"
)

// Number of impacts the rolling duration average is computed over.
const AVG_COUNT int = 30

type MetricsState struct {
	mu          sync.Mutex
	durations   *containers.RingQueue[time.Duration]
	outcomes    map[string]uint64
	Impacts     uint64
	Failures    uint64
	Cancelled   uint64
	AvgDuration time.Duration
}

// ImpactStats is a snapshot of the impact metrics.
type ImpactStats struct {
	Impacts     uint64
	Failures    uint64
	Cancelled   uint64
	Outcomes    map[string]uint64
	AvgDuration time.Duration
}

var onceMetrics sync.Once
var metricsState *MetricsState = nil

func MetricsInitialize() error {
	onceMetrics.Do(func() {
		metricsState = &MetricsState{
			durations: containers.NewRingQueue[time.Duration](AVG_COUNT),
			outcomes:  make(map[string]uint64),
		}
	})
	return nil
}

// MetricsRecordImpact records a completed impact run with its outcome label.
func MetricsRecordImpact(outcome string, elapsed time.Duration) {
	_ = MetricsInitialize()
	m := metricsState
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Impacts++
	m.outcomes[outcome]++
	m.durations.Push(elapsed)

	var sum time.Duration
	m.durations.Each(func(d time.Duration) { sum += d })
	m.AvgDuration = sum / time.Duration(m.durations.Len())
}

func MetricsRecordFailure() {
	_ = MetricsInitialize()
	metricsState.mu.Lock()
	metricsState.Failures++
	metricsState.mu.Unlock()
}

func MetricsRecordCancelled() {
	_ = MetricsInitialize()
	metricsState.mu.Lock()
	metricsState.Cancelled++
	metricsState.mu.Unlock()
}

func MetricsImpactStats() ImpactStats {
	_ = MetricsInitialize()
	m := metricsState
	m.mu.Lock()
	defer m.mu.Unlock()

	outcomes := make(map[string]uint64, len(m.outcomes))
	for k, v := range m.outcomes {
		outcomes[k] = v
	}
	return ImpactStats{
		Impacts:     m.Impacts,
		Failures:    m.Failures,
		Cancelled:   m.Cancelled,
		Outcomes:    outcomes,
		AvgDuration: m.AvgDuration,
	}
}
