package pkg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ecopia-map/potree_streamer/internal/config"
	"github.com/ecopia-map/potree_streamer/internal/geometry"
	"github.com/ecopia-map/potree_streamer/internal/scheduler"
	"github.com/ecopia-map/potree_streamer/pkg/source_manager"
	"github.com/ecopia-map/potree_streamer/tools"
	"github.com/golang/glog"
)

type IRunner interface {
	Run(ctx context.Context, opts *config.CommandOptions) error
}

type runnerBase struct {
	fileFinder    tools.FileFinder
	sourceManager source_manager.SourceManager
}

func NewRunner(command string, fileFinder tools.FileFinder, sourceManager source_manager.SourceManager) (IRunner, error) {
	base := runnerBase{fileFinder: fileFinder, sourceManager: sourceManager}
	switch command {
	case tools.CommandInspect:
		return &Inspector{base}, nil
	case tools.CommandSimulate:
		return &Simulator{base}, nil
	case tools.CommandExport:
		return &Exporter{base}, nil
	case tools.CommandVerify:
		return &Verifier{base}, nil
	}
	return nil, fmt.Errorf("unrecognized command %q", command)
}

// Loads every dataset named by opts into a new instance
func (r *runnerBase) open(ctx context.Context, opts *config.CommandOptions, extra ...Option) (*Potree, []*PointCloud, error) {
	glog.Infoln("Preparing list of datasets to process...")
	urls, err := r.fileFinder.GetDatasetsToProcess(opts)
	if err != nil {
		return nil, nil, err
	}
	if len(urls) == 0 {
		return nil, nil, errors.New("no cloud.js found in " + opts.Input)
	}
	for i, url := range urls {
		glog.Infof("dataset %d [%s]", i, url)
	}

	stream := opts.Stream
	if stream == nil {
		stream = config.DefaultOptions()
	}
	p := New(append([]Option{WithOptions(stream)}, extra...)...)
	clouds, err := p.LoadPointClouds(ctx, urls, r.sourceManager)
	if err != nil {
		p.Close()
		return nil, nil, err
	}
	if opts.Cloud != nil {
		for _, pc := range clouds {
			pc.Settings = opts.Cloud.Copy()
		}
	}
	tools.LogOutputf("loaded %d datasets", len(clouds))
	return p, clouds, nil
}

// Runs passes for one camera until no load is pending or maxPasses is reached
func settlePasses(ctx context.Context, p *Potree, clouds []*PointCloud, camera *geometry.Camera, viewport geometry.Viewport, maxPasses int) (*scheduler.Result, int, error) {
	var res *scheduler.Result
	for pass := 1; pass <= maxPasses; pass++ {
		res = p.UpdatePointClouds(clouds, camera, viewport)
		if len(res.NodeLoadFutures) == 0 && !res.ExceededMaxLoadsToGPU && p.NumNodesLoading() == 0 {
			return res, pass, nil
		}
		if err := awaitLoads(ctx, res); err != nil {
			return res, pass, err
		}
		if len(res.NodeLoadFutures) == 0 && p.NumNodesLoading() > 0 {
			// loads of earlier passes are completing
			select {
			case <-time.After(time.Millisecond):
			case <-ctx.Done():
				return res, pass, ctx.Err()
			}
		}
	}
	return res, maxPasses, nil
}

// Waits for the loads issued by a pass. Failed loads are reported by the next pass.
func awaitLoads(ctx context.Context, res *scheduler.Result) error {
	for _, f := range res.NodeLoadFutures {
		if _, err := f.Wait(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func worldBounds(clouds []*PointCloud) *geometry.BoundingBox {
	box := geometry.NewEmptyBoundingBox()
	for _, pc := range clouds {
		box.Union(pc.BoundingBox())
	}
	return box
}

func loadScenario(path string, clouds []*PointCloud, frames int) (*tools.Scenario, error) {
	if path != "" {
		return tools.LoadScenario(path)
	}
	return tools.DefaultScenario(worldBounds(clouds), frames), nil
}
