// Package metrics holds the process-wide gauge set and the refresh contract
// every collector follows: clear the gauge, set one series per result row,
// and emit the documented sentinel series when the result set is empty, so
// "no data" stays visually distinct from "collector never ran".
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// SentinelValue is the label value used for every label of a sentinel series.
const SentinelValue = "none"

// Gauge is a named, labeled gauge with a fixed label schema declared at
// process start. Values are replaced wholesale on each collector run.
type Gauge struct {
	vec    *prometheus.GaugeVec
	labels []string
}

// Reset drops every currently exported series. Collectors call this only
// after their source fetch has succeeded; a failed fetch must leave the
// previous snapshot visible.
func (g *Gauge) Reset() {
	g.vec.Reset()
}

// Set sets one series. The number of label values must match the schema
// declared for this gauge; a mismatch panics, which the scheduler's job
// wrapper converts into a logged failed cycle.
func (g *Gauge) Set(value float64, labelValues ...string) {
	g.vec.WithLabelValues(labelValues...).Set(value)
}

// Sentinel emits the placeholder series for an empty result set: every
// label is SentinelValue and the value is 0.
func (g *Gauge) Sentinel() {
	values := make([]string, len(g.labels))
	for i := range values {
		values[i] = SentinelValue
	}
	g.vec.WithLabelValues(values...).Set(0)
}

// Replace applies the full refresh cycle in one call: clear, set each row,
// sentinel on empty.
func (g *Gauge) Replace(rows []SeriesValue) {
	g.Reset()
	if len(rows) == 0 {
		g.Sentinel()
		return
	}
	for _, row := range rows {
		g.Set(row.Value, row.Labels...)
	}
}

// SeriesValue is one logical result row of a refresh cycle.
type SeriesValue struct {
	Labels []string
	Value  float64
}

// newGauge declares a gauge on the registry. Declaring the same name twice
// panics via MustRegister: duplicate gauge names are a programming error
// caught at startup, never at scrape time.
func newGauge(reg *prometheus.Registry, name, help string, labels []string) *Gauge {
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: name,
		Help: help,
	}, labels)
	reg.MustRegister(vec)
	return &Gauge{vec: vec, labels: labels}
}

// Registry carries the prometheus registry alongside the declared gauges so
// tests can build a fully isolated metric set per test.
type Registry struct {
	prom *prometheus.Registry
}

// Prometheus returns the underlying registry for the scrape handler.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.prom
}

func (r *Registry) String() string {
	return fmt.Sprintf("metrics.Registry(%p)", r.prom)
}
