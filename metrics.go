package phasor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the resource installed by MetricsPlugin: Prometheus collectors
// observing the world and the schedule runner.
type Metrics struct {
	reg          prometheus.Registerer
	entities     prometheus.GaugeFunc
	archetypes   prometheus.GaugeFunc
	scheduleRuns *prometheus.HistogramVec
	dropped      prometheus.Counter
}

func newMetrics(w *World, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{reg: reg}
	m.entities = factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "phasor",
		Name:      "entities",
		Help:      "Live entities in the world.",
	}, func() float64 { return float64(w.db.EntityCount()) })
	m.archetypes = factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "phasor",
		Name:      "archetypes",
		Help:      "Live archetypes in the world.",
	}, func() float64 { return float64(w.db.ArchetypeCount()) })
	m.scheduleRuns = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "phasor",
		Name:      "schedule_run_seconds",
		Help:      "Wall time per schedule run.",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
	}, []string{"schedule"})
	m.dropped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "phasor",
		Name:      "broadcast_dropped_events_total",
		Help:      "Events skipped by slow broadcast subscribers.",
	})
	return m
}

func (m *Metrics) observeSchedule(label string, d time.Duration) {
	m.scheduleRuns.WithLabelValues(label).Observe(d.Seconds())
}

func (m *Metrics) unregister() {
	m.reg.Unregister(m.entities)
	m.reg.Unregister(m.archetypes)
	m.reg.Unregister(m.scheduleRuns)
	m.reg.Unregister(m.dropped)
}

// MetricsPlugin installs the Metrics resource and wires the broadcast drop
// counter. A nil Registerer uses the Prometheus default.
type MetricsPlugin struct {
	Registerer prometheus.Registerer
}

// Build registers the collectors and installs the Metrics resource.
func (p MetricsPlugin) Build(app *App) error {
	reg := p.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := newMetrics(app.world, reg)
	onDroppedEvents = func(count uint64) { m.dropped.Add(float64(count)) }
	InsertResource(app.world.resources, *m)
	return nil
}

// Cleanup detaches the drop hook and unregisters the collectors.
func (p MetricsPlugin) Cleanup(app *App) error {
	onDroppedEvents = nil
	if m, ok := GetResource[Metrics](app.world.resources); ok {
		m.unregister()
		RemoveResource[Metrics](app.world.resources)
	}
	return nil
}
