package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/exhibit/pkg/domain"
)

// Metrics holds the Prometheus series of one engine.
type Metrics struct {
	registry *prometheus.Registry

	switches      *prometheus.CounterVec
	closes        *prometheus.CounterVec
	closeDuration *prometheus.HistogramVec
	regions       *prometheus.CounterVec
	historyDepth  prometheus.Gauge
	dispatches    *prometheus.CounterVec
}

// NewMetrics creates the series and registers them on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		switches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exhibit_node_switches_total",
				Help: "Total number of committed node switches",
			},
			[]string{"to"},
		),
		closes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exhibit_node_closes_total",
				Help: "Total number of node closes by outcome",
			},
			[]string{"region", "outcome"},
		),
		closeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "exhibit_node_close_duration_seconds",
				Help:    "Duration of node close protocols",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"region"},
		),
		regions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exhibit_region_transitions_total",
				Help: "Total number of region activations, exits and completions",
			},
			[]string{"region", "event"},
		),
		historyDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "exhibit_history_depth",
			Help: "Current depth of the navigation history",
		}),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exhibit_dispatch_total",
				Help: "Total number of dispatcher broadcasts by outcome",
			},
			[]string{"outcome"},
		),
	}
	m.registry.MustRegister(m.switches, m.closes, m.closeDuration, m.regions, m.historyDepth, m.dispatches)
	return m
}

// Registry exposes the registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDispatch counts a dispatcher broadcast. It satisfies dispatch.Recorder.
func (m *Metrics) ObserveDispatch(outcome string) {
	m.dispatches.WithLabelValues(outcome).Inc()
}

// Hooks returns lifecycle hooks that record into the series.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	region := func(event string) func(context.Context, *domain.RegionEvent) {
		return func(_ context.Context, e *domain.RegionEvent) {
			m.regions.WithLabelValues(e.Region, event).Inc()
		}
	}
	return domain.LifecycleHooks{
		OnNodeSwitch: func(_ context.Context, e *domain.TransitionEvent) {
			m.switches.WithLabelValues(e.ToNodeID).Inc()
			m.historyDepth.Set(float64(e.HistoryDepth))
		},
		OnNodeClose: func(_ context.Context, e *domain.NodeEvent) {
			m.closes.WithLabelValues(e.Region, string(e.Outcome)).Inc()
			m.closeDuration.WithLabelValues(e.Region).Observe(e.Duration.Seconds())
		},
		OnRegionActivate: region("activate"),
		OnRegionExit:     region("exit"),
		OnRegionComplete: region("complete"),
		OnHistoryClear: func(context.Context) {
			m.historyDepth.Set(0)
		},
	}
}
