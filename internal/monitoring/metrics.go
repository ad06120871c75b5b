package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the sampler collectors. A nil *Metrics is valid and
// records nothing, so library callers that do not care about metrics can
// leave it unset.
type Metrics struct {
	Positions     *prometheus.CounterVec
	Retries       prometheus.Counter
	NonEmptyBins  prometheus.Gauge
	AnchorsKept   prometheus.Gauge
	AnchorsPruned prometheus.Gauge
}

// NewMetrics creates the sampler collectors and registers them with reg.
// Passing a nil registerer creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Positions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stellarpop",
			Subsystem: "ast",
			Name:      "positions_total",
			Help:      "Artificial star positions assigned, by sampler.",
		}, []string{"sampler"}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stellarpop",
			Subsystem: "ast",
			Name:      "position_retries_total",
			Help:      "Position draws rejected for falling outside the reference image.",
		}),
		NonEmptyBins: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stellarpop",
			Subsystem: "ast",
			Name:      "bins_nonempty",
			Help:      "Density bins holding at least one tile in the last map sampling run.",
		}),
		AnchorsKept: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stellarpop",
			Subsystem: "ast",
			Name:      "anchors_kept",
			Help:      "Catalog sources usable as offset anchors after edge filtering.",
		}),
		AnchorsPruned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stellarpop",
			Subsystem: "ast",
			Name:      "anchors_pruned",
			Help:      "Catalog sources dropped for lying too close to the image edge.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Positions, m.Retries, m.NonEmptyBins, m.AnchorsKept, m.AnchorsPruned} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// AddPositions counts n positions assigned by sampler.
func (m *Metrics) AddPositions(sampler string, n int) {
	if m == nil {
		return
	}
	m.Positions.WithLabelValues(sampler).Add(float64(n))
}

// AddRetries counts n rejected draws.
func (m *Metrics) AddRetries(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Retries.Add(float64(n))
}

// SetNonEmptyBins records the number of usable density bins.
func (m *Metrics) SetNonEmptyBins(n int) {
	if m == nil {
		return
	}
	m.NonEmptyBins.Set(float64(n))
}

// SetAnchors records how many catalog sources survived the edge filter.
func (m *Metrics) SetAnchors(kept, pruned int) {
	if m == nil {
		return
	}
	m.AnchorsKept.Set(float64(kept))
	m.AnchorsPruned.Set(float64(pruned))
}
