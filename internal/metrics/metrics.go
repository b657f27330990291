// Package metrics exposes streaming counters through prometheus. A nil *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Collector struct {
	loadsStarted   prometheus.Counter
	loadsFailed    *prometheus.CounterVec
	loadsDiscarded prometheus.Counter
	loadDuration   prometheus.Histogram
	loadsInFlight  prometheus.Gauge
	fetchedBytes   prometheus.Counter

	visibleNodes  prometheus.Gauge
	visiblePoints prometheus.Gauge
	deferredLoads prometheus.Counter
	passDuration  prometheus.Histogram

	cachePoints    prometheus.Gauge
	cacheEvictions prometheus.Counter
}

// Registers the collectors on reg. Each registerer may back a single Collector.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		loadsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "potree_node_loads_started_total",
			Help: "Total number of node payload loads submitted to the loader",
		}),
		loadsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "potree_node_loads_failed_total",
			Help: "Total number of node loads that failed",
		}, []string{"kind"}),
		loadsDiscarded: f.NewCounter(prometheus.CounterOpts{
			Name: "potree_node_loads_discarded_total",
			Help: "Number of completed loads dropped because their node was disposed",
		}),
		loadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "potree_node_load_duration_seconds",
			Help:    "Duration of node fetch and decode",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		loadsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "potree_node_loads_in_flight",
			Help: "Current number of node loads in flight",
		}),
		fetchedBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "potree_fetched_bytes_total",
			Help: "Total number of payload and hierarchy bytes fetched",
		}),
		visibleNodes: f.NewGauge(prometheus.GaugeOpts{
			Name: "potree_visible_nodes",
			Help: "Number of nodes rendered by the last visibility pass",
		}),
		visiblePoints: f.NewGauge(prometheus.GaugeOpts{
			Name: "potree_visible_points",
			Help: "Number of points selected by the last visibility pass",
		}),
		deferredLoads: f.NewCounter(prometheus.CounterOpts{
			Name: "potree_deferred_loads_total",
			Help: "Number of wanted nodes not loaded because of the concurrent load cap",
		}),
		passDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "potree_visibility_pass_duration_seconds",
			Help:    "Duration of a visibility pass",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		cachePoints: f.NewGauge(prometheus.GaugeOpts{
			Name: "potree_cache_points",
			Help: "Number of points held by loaded nodes",
		}),
		cacheEvictions: f.NewCounter(prometheus.CounterOpts{
			Name: "potree_cache_evictions_total",
			Help: "Number of node payloads released by the cache",
		}),
	}
}

func (c *Collector) LoadStarted() {
	if c == nil {
		return
	}
	c.loadsStarted.Inc()
	c.loadsInFlight.Inc()
}

// Records the end of a load. kind is empty on success.
func (c *Collector) LoadFinished(start time.Time, bytes int, kind string) {
	if c == nil {
		return
	}
	c.loadsInFlight.Dec()
	c.loadDuration.Observe(time.Since(start).Seconds())
	c.fetchedBytes.Add(float64(bytes))
	if kind != "" {
		c.loadsFailed.WithLabelValues(kind).Inc()
	}
}

func (c *Collector) LoadDiscarded() {
	if c == nil {
		return
	}
	c.loadsDiscarded.Inc()
}

func (c *Collector) BytesFetched(n int) {
	if c == nil {
		return
	}
	c.fetchedBytes.Add(float64(n))
}

func (c *Collector) PassFinished(start time.Time, nodes, points, deferred, cachePoints, evicted int) {
	if c == nil {
		return
	}
	c.passDuration.Observe(time.Since(start).Seconds())
	c.visibleNodes.Set(float64(nodes))
	c.visiblePoints.Set(float64(points))
	c.deferredLoads.Add(float64(deferred))
	c.cachePoints.Set(float64(cachePoints))
	c.cacheEvictions.Add(float64(evicted))
}
