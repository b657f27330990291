package loader

import (
	"runtime"
	"time"

	"github.com/ecopia-map/potree_streamer/internal/metrics"
	"golang.org/x/time/rate"
)

type poolOptions struct {
	workers      int
	queueSize    int
	limiter      *rate.Limiter
	metrics      *metrics.Collector
	fetchTimeout time.Duration
}

type Option func(*poolOptions)

func defaultPoolOptions() poolOptions {
	return poolOptions{
		workers:   runtime.NumCPU(),
		queueSize: 64,
	}
}

// Number of consumer goroutines
func WithWorkers(n int) Option {
	return func(o *poolOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// Capacity of the work queue. Submit fails with ErrQueueFull once it is reached.
func WithQueueSize(n int) Option {
	return func(o *poolOptions) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// Limits the bytes read per second across all workers
func WithRateLimit(bytesPerSecond int) Option {
	return func(o *poolOptions) {
		if bytesPerSecond > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(bytesPerSecond), bytesPerSecond)
		}
	}
}

func WithMetrics(c *metrics.Collector) Option {
	return func(o *poolOptions) {
		o.metrics = c
	}
}

// Deadline applied to each fetch, none when zero
func WithFetchTimeout(d time.Duration) Option {
	return func(o *poolOptions) {
		o.fetchTimeout = d
	}
}
