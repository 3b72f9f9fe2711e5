// Package metrics exports live resource and entity statistics as Prometheus metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bambielli/simhelpers/sim/series"
)

// Collector bundles the Prometheus metrics fed by a stats.Registry observer.
type Collector struct {
	gatherer prometheus.Gatherer

	QueueLength   *prometheus.GaugeVec
	InService     *prometheus.GaugeVec
	Utilization   *prometheus.GaugeVec
	Events        *prometheus.CounterVec
	Disposed      *prometheus.CounterVec
	TimeInSystem  *prometheus.HistogramVec
	SimulatedTime prometheus.Gauge
}

// NewCollector registers the simulation metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	queue, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_resource_queue_length",
		Help: "Requests waiting for a unit of the resource at the last logged event.",
	}, []string{"resource"}), "sim_resource_queue_length")
	if err != nil {
		return nil, err
	}
	inService, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_resource_in_service",
		Help: "Units of the resource in use at the last logged event.",
	}, []string{"resource"}), "sim_resource_in_service")
	if err != nil {
		return nil, err
	}
	utilization, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_resource_utilization_ratio",
		Help: "Fraction of the resource's units in use at the last logged event.",
	}, []string{"resource"}), "sim_resource_utilization_ratio")
	if err != nil {
		return nil, err
	}
	events, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_resource_events_total",
		Help: "Logged resource events, labeled by resource and event kind.",
	}, []string{"resource", "kind"}), "sim_resource_events_total")
	if err != nil {
		return nil, err
	}
	disposed, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_entities_disposed_total",
		Help: "Entities that left the system, labeled by entity type.",
	}, []string{"type"}), "sim_entities_disposed_total")
	if err != nil {
		return nil, err
	}
	timeInSystem, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sim_entity_time_in_system",
		Help:    "Simulated time from creation to disposal.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"type"}), "sim_entity_time_in_system")
	if err != nil {
		return nil, err
	}
	clock, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_clock",
		Help: "Simulated time of the last observed event.",
	}), "sim_clock")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:      gatherer,
		QueueLength:   queue,
		InService:     inService,
		Utilization:   utilization,
		Events:        events,
		Disposed:      disposed,
		TimeInSystem:  timeInSystem,
		SimulatedTime: clock,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveResource records one resource event.
func (c *Collector) ObserveResource(resource string, kind series.Kind, at float64, queueLen, active, capacity int) {
	if c == nil {
		return
	}
	c.QueueLength.WithLabelValues(resource).Set(float64(queueLen))
	c.InService.WithLabelValues(resource).Set(float64(active))
	if capacity > 0 {
		c.Utilization.WithLabelValues(resource).Set(float64(active) / float64(capacity))
	}
	c.Events.WithLabelValues(resource, string(kind)).Inc()
	c.SimulatedTime.Set(at)
}

// ObserveDisposal records an entity leaving the system.
func (c *Collector) ObserveDisposal(kind string, at, timeInSystem float64) {
	if c == nil {
		return
	}
	c.Disposed.WithLabelValues(kind).Inc()
	c.TimeInSystem.WithLabelValues(kind).Observe(timeInSystem)
	c.SimulatedTime.Set(at)
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
