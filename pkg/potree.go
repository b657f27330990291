// Package pkg streams potree point clouds: it indexes datasets, selects every frame the nodes
// to draw under a point budget and loads their payloads in the background.
package pkg

import (
	"context"
	"errors"
	"sync"

	"github.com/ecopia-map/potree_streamer/internal/config"
	"github.com/ecopia-map/potree_streamer/internal/geometry"
	"github.com/ecopia-map/potree_streamer/internal/loader"
	"github.com/ecopia-map/potree_streamer/internal/metrics"
	"github.com/ecopia-map/potree_streamer/internal/octree"
	"github.com/ecopia-map/potree_streamer/internal/scheduler"
	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// Streams any number of point clouds sharing one point budget and one loader
type Potree struct {
	mu            sync.Mutex
	opts          *config.Options
	cloudDefaults *config.PointCloudOptions
	registerer    prometheus.Registerer

	metrics *metrics.Collector
	pool    *loader.Pool
	sched   *scheduler.Scheduler
	closed  bool
}

func New(opts ...Option) *Potree {
	p := &Potree{
		opts:          config.DefaultOptions(),
		cloudDefaults: config.DefaultPointCloudOptions(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registerer != nil {
		p.metrics = metrics.New(p.registerer)
	}

	poolOpts := []loader.Option{
		loader.WithWorkers(p.opts.NumWorkers),
		loader.WithQueueSize(p.opts.QueueSize),
		loader.WithMetrics(p.metrics),
		loader.WithFetchTimeout(p.opts.FetchTimeout),
	}
	if p.opts.IOLimit > 0 {
		poolOpts = append(poolOpts, loader.WithRateLimit(p.opts.IOLimit))
	}
	p.pool = loader.NewPool(poolOpts...)
	p.sched = scheduler.New(p.pool, p.opts, p.metrics)
	return p
}

// Reads the manifest at url and indexes the dataset. Paths inside the dataset are mapped to URLs
// by resolver, relative to url when resolver is nil. Failures are *StructuralError.
func (p *Potree) LoadPointCloud(ctx context.Context, url string, resolver loader.URLResolver, fetcher loader.Fetcher) (*PointCloud, error) {
	if resolver == nil {
		resolver = loader.RelativeResolver(url)
	}
	src := loader.NewSource(fetcher, resolver)

	b, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, &StructuralError{URL: url, Err: err}
	}
	m, err := octree.ParseManifest(b)
	if err != nil {
		var structural *StructuralError
		if errors.As(err, &structural) && structural.URL == "" {
			structural.URL = url
		}
		return nil, err
	}
	idx, err := octree.NewIndex(ctx, m, src)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	settings := p.cloudDefaults.Copy()
	p.mu.Unlock()

	glog.Infof("loaded point cloud %s: version %s, %d points, %d nodes indexed", url, m.Version, m.Points, idx.Len())
	return newPointCloud(p, url, idx, src, settings), nil
}

// Runs LoadPointCloud in the background
func (p *Potree) LoadPointCloudAsync(ctx context.Context, url string, resolver loader.URLResolver, fetcher loader.Fetcher) *loader.Future[*PointCloud] {
	f := loader.NewFuture[*PointCloud]()
	go func() {
		f.Resolve(p.LoadPointCloud(ctx, url, resolver, fetcher))
	}()
	return f
}

// Loads several datasets concurrently, each resolved relative to its own manifest. The first
// failure cancels the others.
func (p *Potree) LoadPointClouds(ctx context.Context, urls []string, fetcher loader.Fetcher) ([]*PointCloud, error) {
	clouds := make([]*PointCloud, len(urls))
	g, ctx := errgroup.WithContext(ctx)
	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			pc, err := p.LoadPointCloud(ctx, url, nil, fetcher)
			if err != nil {
				return err
			}
			clouds[i] = pc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return clouds, nil
}

// Runs one visibility pass over clouds. Node indices in the result refer to positions in clouds.
// Must be called from a single goroutine, typically once per rendered frame.
func (p *Potree) UpdatePointClouds(clouds []*PointCloud, camera *geometry.Camera, viewport geometry.Viewport) *scheduler.Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	targets := make([]*scheduler.Target, len(clouds))
	for i, pc := range clouds {
		targets[i] = pc.target()
	}
	res := p.sched.Update(targets, camera, viewport)
	for i, pc := range clouds {
		pc.updateVisibility(res.Visible(i), res.CloudPoints[i])
	}
	return res
}

func (p *Potree) PointBudget() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sched.PointBudget()
}

func (p *Potree) SetPointBudget(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sched.SetPointBudget(n)
}

func (p *Potree) MaxNumNodesLoading() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sched.MaxNumNodesLoading()
}

func (p *Potree) SetMaxNumNodesLoading(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sched.SetMaxNumNodesLoading(n)
}

func (p *Potree) SetMaxLoadsToGPU(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sched.SetMaxLoadsToGPU(n)
}

// Number of node loads in flight
func (p *Potree) NumNodesLoading() int {
	return p.pool.InFlight()
}

// Points held by loaded payloads
func (p *Potree) NumLoadedPoints() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sched.Cache().NumPoints()
}

// Releases every payload of pc. Loads in flight for it are discarded when they complete.
func (p *Potree) Dispose(pc *PointCloud) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pc.disposed {
		return
	}
	released := p.sched.Dispose(pc.index)
	pc.disposed = true
	pc.updateVisibility(nil, 0)
	glog.V(1).Infof("disposed point cloud %s, %d payloads released", pc.url, len(released))
}

// Makes the failed nodes of pc eligible for loading again
func (p *Potree) ResetFailed(pc *PointCloud) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sched.ResetFailed(pc.index)
}

// Stops the loader. Pending loads are cancelled.
func (p *Potree) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.pool.Close()
}
