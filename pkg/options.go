package pkg

import (
	"time"

	"github.com/ecopia-map/potree_streamer/internal/config"
	"github.com/prometheus/client_golang/prometheus"
)

type Option func(*Potree)

func WithPointBudget(n int) Option {
	return func(p *Potree) {
		p.opts.PointBudget = n
	}
}

func WithMaxNumNodesLoading(n int) Option {
	return func(p *Potree) {
		p.opts.MaxNumNodesLoading = n
	}
}

// Max number of loaded payloads applied per pass, negative for no limit
func WithMaxLoadsToGPU(n int) Option {
	return func(p *Potree) {
		p.opts.MaxLoadsToGPU = n
	}
}

// Default MinNodePixelSize of point clouds loaded afterwards
func WithMinNodePixelSize(px float64) Option {
	return func(p *Potree) {
		p.cloudDefaults.MinNodePixelSize = px
	}
}

func WithNumWorkers(n int) Option {
	return func(p *Potree) {
		p.opts.NumWorkers = n
	}
}

// Limits the bytes per second read by the loader
func WithIOLimit(bytesPerSecond int) Option {
	return func(p *Potree) {
		p.opts.IOLimit = bytesPerSecond
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(p *Potree) {
		p.opts.FetchTimeout = d
	}
}

// Registers the loader and scheduler metrics
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(p *Potree) {
		p.registerer = reg
	}
}

// Replaces every setting at once
func WithOptions(opts *config.Options) Option {
	return func(p *Potree) {
		p.opts = opts.Copy()
	}
}
