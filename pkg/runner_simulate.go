package pkg

import (
	"context"
	"os"
	"time"

	"github.com/ecopia-map/potree_streamer/internal/config"
	"github.com/ecopia-map/potree_streamer/tools"
	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/multierr"
)

// Replays a camera path, one visibility pass per frame, and reports the streaming statistics
type Simulator struct {
	runnerBase
}

type SimulationSummary struct {
	Frames          int
	MaxVisibleNodes int
	MaxLoadedPoints int
	FailedFrames    int
	Elapsed         time.Duration
}

func (r *Simulator) Run(ctx context.Context, opts *config.CommandOptions) error {
	_, err := r.Simulate(ctx, opts)
	return err
}

func (r *Simulator) Simulate(ctx context.Context, opts *config.CommandOptions) (*SimulationSummary, error) {
	simulate := opts.SimulateOptions
	if simulate == nil {
		simulate = &config.SimulateOptions{Frames: 20}
	}
	reg := prometheus.NewRegistry()
	p, clouds, err := r.open(ctx, opts, WithMetricsRegisterer(reg))
	if err != nil {
		return nil, err
	}
	defer p.Close()

	scenario, err := loadScenario(simulate.Scenario, clouds, simulate.Frames)
	if err != nil {
		return nil, err
	}
	viewport := scenario.GeometryViewport()

	summary := &SimulationSummary{}
	start := time.Now()
	for i, step := range scenario.Steps {
		camera := scenario.Camera(i)
		for frame := 0; frame < step.Frames; frame++ {
			res := p.UpdatePointClouds(clouds, camera, viewport)
			summary.Frames++
			if res.NodeLoadFailed {
				summary.FailedFrames++
			}
			if len(res.VisibleNodes) > summary.MaxVisibleNodes {
				summary.MaxVisibleNodes = len(res.VisibleNodes)
			}
			if n := p.NumLoadedPoints(); n > summary.MaxLoadedPoints {
				summary.MaxLoadedPoints = n
			}
			glog.V(1).Infof("frame %d: %d visible nodes, %d points, %d requested, %d deferred, %d evicted",
				summary.Frames, len(res.VisibleNodes), res.NumVisiblePoints, len(res.NodeLoadFutures), res.DeferredLoads, len(res.Evicted))
			if err := awaitLoads(ctx, res); err != nil {
				return summary, err
			}
		}
		for _, pc := range clouds {
			tools.LogOutputf("camera %d/%d %s: %d nodes, %s points, %.0f%% loaded",
				i+1, len(scenario.Steps), pc.URL(), len(pc.VisibleNodes()), tools.FmtPoints(int64(pc.NumVisiblePoints())), 100*pc.Progress())
		}
	}
	summary.Elapsed = time.Since(start)
	tools.LogOutputf("%d frames in %s, at most %d visible nodes and %s loaded points",
		summary.Frames, summary.Elapsed, summary.MaxVisibleNodes, tools.FmtPoints(int64(summary.MaxLoadedPoints)))

	if simulate.MetricsOut != "" {
		if err := writeMetrics(reg, simulate.MetricsOut); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

func writeMetrics(reg *prometheus.Registry, path string) (err error) {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	if err := tools.PrepareOutputFile(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
