package pkg

import (
	"context"
	"errors"

	"github.com/ecopia-map/potree_streamer/internal/config"
	"github.com/ecopia-map/potree_streamer/internal/converters"
	"github.com/ecopia-map/potree_streamer/tools"
)

// Streams the datasets for one camera and writes the selected points to a LAS file
type Exporter struct {
	runnerBase
}

func (r *Exporter) Run(ctx context.Context, opts *config.CommandOptions) error {
	export := opts.ExportOptions
	if export == nil || export.Output == "" {
		return errors.New("export requires an output file")
	}
	settle := export.Settle
	if settle <= 0 {
		settle = 200
	}

	p, clouds, err := r.open(ctx, opts)
	if err != nil {
		return err
	}
	defer p.Close()

	scenario, err := loadScenario(export.Scenario, clouds, 1)
	if err != nil {
		return err
	}
	camera := scenario.Camera(len(scenario.Steps) - 1)
	res, passes, err := settlePasses(ctx, p, clouds, camera, scenario.GeometryViewport(), settle)
	if err != nil {
		return err
	}
	if res.NodeLoadFailed {
		tools.LogOutput("some nodes failed to load, the export is partial")
	}

	if err := tools.PrepareOutputFile(export.Output); err != nil {
		return err
	}
	var corrector converters.ElevationCorrector
	if export.ZOffset != 0 {
		corrector = converters.NewOffsetElevationCorrector(export.ZOffset)
	}
	written, err := p.ExportLAS(export.Output, clouds, corrector)
	if err != nil {
		return err
	}
	tools.LogOutputf("exported %s points after %d passes to %s", tools.FmtPoints(int64(written)), passes, export.Output)
	return nil
}
