// Package metrics exposes auth activity and session sweeps as prometheus
// metrics.
package metrics

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auth "github.com/goliatone/go-syr-auth"
)

const namespace = "syr_auth"

// Collector counts activity events and sweep results. It implements
// auth.ActivitySink and auth.SweepObserver.
type Collector struct {
	events      *prometheus.CounterVec
	swept       prometheus.Counter
	sweepErrors prometheus.Counter
	registry    *prometheus.Registry
}

var (
	_ auth.ActivitySink  = (*Collector)(nil)
	_ auth.SweepObserver = (*Collector)(nil)
)

// NewCollector registers the auth metrics on a fresh registry
func NewCollector() *Collector {
	c := &Collector{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_events_total",
			Help:      "Auth activity events by type.",
		}, []string{"event"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_swept_total",
			Help:      "Expired sessions removed by the sweeper.",
		}),
		sweepErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_sweep_errors_total",
			Help:      "Sweeper runs that failed.",
		}),
		registry: prometheus.NewRegistry(),
	}

	c.registry.MustRegister(
		c.events,
		c.swept,
		c.sweepErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Record implements auth.ActivitySink
func (c *Collector) Record(_ context.Context, event auth.ActivityEvent) error {
	c.events.WithLabelValues(string(event.EventType)).Inc()
	return nil
}

// ObserveSweep implements auth.SweepObserver
func (c *Collector) ObserveSweep(removed int64, err error) {
	if err != nil {
		c.sweepErrors.Inc()
		return
	}
	if removed > 0 {
		c.swept.Add(float64(removed))
	}
}

// Registry returns the registry holding the auth metrics
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the prometheus text format
func (c *Collector) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
}
