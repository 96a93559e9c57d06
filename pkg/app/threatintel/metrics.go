package threatintel

import (
	"context"
	"sync"
	"time"
)

const metricsWindow = time.Hour

type observation struct {
	at       time.Time
	latency  time.Duration
	cacheHit bool
	degraded bool
}

// Metrics keeps a bounded in-memory window of check observations for the
// operational snapshot. Prometheus carries the long-term series; this exists
// so the API can answer without a metrics backend.
type Metrics struct {
	capacity int

	mu           sync.Mutex
	observations []observation

	cancel context.CancelFunc
	done   chan struct{}
}

// Snapshot is the aggregate over the in-memory window.
type Snapshot struct {
	Checks       int     `json:"checks"`
	CacheHitRate float64 `json:"cache_hit_rate"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	DegradedRate float64 `json:"degraded_rate"`
}

func NewMetrics(capacity int) *Metrics {
	return &Metrics{
		capacity:     capacity,
		observations: make([]observation, 0, capacity),
	}
}

func (m *Metrics) Observe(latency time.Duration, cacheHit, degraded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.observations) >= m.capacity {
		m.observations = m.observations[1:]
	}
	m.observations = append(m.observations, observation{
		at:       time.Now(),
		latency:  latency,
		cacheHit: cacheHit,
		degraded: degraded,
	})
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := Snapshot{Checks: len(m.observations)}
	if len(m.observations) == 0 {
		return snapshot
	}

	var hits, degraded int
	var totalLatency time.Duration
	for _, obs := range m.observations {
		if obs.cacheHit {
			hits++
		}
		if obs.degraded {
			degraded++
		}
		totalLatency += obs.latency
	}
	n := float64(len(m.observations))
	snapshot.CacheHitRate = float64(hits) / n
	snapshot.DegradedRate = float64(degraded) / n
	snapshot.AvgLatencyMs = float64(totalLatency.Milliseconds()) / n
	return snapshot
}

// Start sweeps observations older than the window on the given interval.
func (m *Metrics) Start(ctx context.Context, sweep time.Duration) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(sweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
}

func (m *Metrics) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

func (m *Metrics) sweep() {
	cutoff := time.Now().Add(-metricsWindow)
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.observations[:0]
	for _, obs := range m.observations {
		if obs.at.After(cutoff) {
			kept = append(kept, obs)
		}
	}
	m.observations = kept
}
