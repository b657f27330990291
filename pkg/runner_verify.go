package pkg

import (
	"context"
	"fmt"

	"github.com/ecopia-map/potree_streamer/internal/config"
	"github.com/ecopia-map/potree_streamer/tools"
	"github.com/golang/glog"
)

// Reads every node of every dataset and reports the broken ones
type Verifier struct {
	runnerBase
}

func (r *Verifier) Run(ctx context.Context, opts *config.CommandOptions) error {
	workers := 8
	if opts.VerifyOptions != nil && opts.VerifyOptions.Workers > 0 {
		workers = opts.VerifyOptions.Workers
	}

	p, clouds, err := r.open(ctx, opts)
	if err != nil {
		return err
	}
	defer p.Close()

	failures := 0
	for _, pc := range clouds {
		report, err := p.Verify(ctx, pc, workers)
		if err != nil {
			return err
		}
		for _, f := range report.Failures {
			glog.Errorf("%s: %v", pc.URL(), f)
		}
		failures += len(report.Failures)
		tools.LogOutputf("%s: %d nodes, %s points, %d failures", pc.URL(), report.Nodes, tools.FmtPoints(report.Points), len(report.Failures))
	}
	if failures > 0 {
		return fmt.Errorf("%d nodes failed verification", failures)
	}
	return nil
}
