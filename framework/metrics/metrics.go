// Package metrics exports container resolution metrics to Prometheus.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-container/framework/container"
)

// Collector observes a container and records resolution counts, failures
// and construction times. It owns its registry so several containers (or
// tests) do not collide on the default one.
type Collector struct {
	registry *prometheus.Registry

	resolutions *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewCollector creates a collector with the Go runtime and process
// collectors already registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "container_resolutions_total",
				Help: "Service resolutions, by service, lifetime and whether a cached singleton was served.",
			},
			[]string{"service", "lifetime", "cached"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "container_resolution_errors_total",
				Help: "Failed service resolutions, by service and reason.",
			},
			[]string{"service", "reason"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "container_construction_duration_seconds",
				Help:    "Time spent building a service, dependencies included.",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"service"},
		),
	}

	c.registry.MustRegister(
		c.resolutions,
		c.failures,
		c.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveResolve implements container.Observer.
func (c *Collector) ObserveResolve(ev container.ResolveEvent) {
	service := ev.Key.String()
	if ev.Err != nil {
		c.failures.WithLabelValues(service, Reason(ev.Err)).Inc()
		return
	}

	cached := "false"
	if ev.Cached {
		cached = "true"
	}
	c.resolutions.WithLabelValues(service, ev.Lifetime.String(), cached).Inc()
	if !ev.Cached {
		c.duration.WithLabelValues(service).Observe(ev.Duration.Seconds())
	}
}

// Registry returns the registry backing the collector.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collected metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Reason classifies a resolution error for the reason label.
func Reason(err error) string {
	switch {
	case errors.Is(err, container.ErrCircularDependency):
		return "circular"
	case errors.Is(err, container.ErrUnregisteredService):
		return "unregistered"
	case errors.Is(err, container.ErrConstruction):
		return "construction"
	default:
		return "other"
	}
}
