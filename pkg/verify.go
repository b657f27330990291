package pkg

import (
	"context"
	"fmt"

	"github.com/ecopia-map/potree_streamer/internal/loader"
	"github.com/ecopia-map/potree_streamer/internal/octree"
	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
)

type VerifyReport struct {
	Nodes  int
	Points int64
	// *LoadError and *BranchError of every node that could not be verified
	Failures []error
}

func (r *VerifyReport) OK() bool {
	return len(r.Failures) == 0
}

type verifyOutcome struct {
	node   *octree.Node
	points int
	specs  []octree.NodeSpec
	err    error
}

// Reads and decodes the payload of every node of pc, expanding sub-hierarchies on the way, and
// checks that decoded point counts match the hierarchy and that points stay inside their node.
// The returned error is only set when ctx is done.
func (p *Potree) Verify(ctx context.Context, pc *PointCloud, workers int) (*VerifyReport, error) {
	if workers <= 0 {
		workers = 1
	}
	report := &VerifyReport{}
	wave := []*octree.Node{pc.Root()}

	for len(wave) > 0 {
		outcomes := make([]verifyOutcome, len(wave))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		needsHierarchy := make([]bool, len(wave))
		p.mu.Lock()
		for i, n := range wave {
			needsHierarchy[i] = pc.index.NeedsHierarchy(n)
		}
		p.mu.Unlock()

		for i, n := range wave {
			i, n := i, n
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				outcomes[i] = verifyNode(gctx, pc.source, n, needsHierarchy[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return report, err
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		var next []*octree.Node
		p.mu.Lock()
		for _, o := range outcomes {
			report.Nodes++
			report.Points += int64(o.points)
			if o.err != nil {
				glog.Warningf("verify: %v", o.err)
				report.Failures = append(report.Failures, o.err)
				continue
			}
			if o.specs != nil {
				if err := pc.index.AttachHierarchy(o.node, o.specs); err != nil {
					report.Failures = append(report.Failures, err)
					continue
				}
			}
			for _, c := range o.node.Children() {
				if c != nil {
					next = append(next, c)
				}
			}
		}
		p.mu.Unlock()
		wave = next
	}

	glog.Infof("verified %s: %d nodes, %d points, %d failures", pc.url, report.Nodes, report.Points, len(report.Failures))
	return report, nil
}

func verifyNode(ctx context.Context, src *loader.Source, node *octree.Node, needsHierarchy bool) verifyOutcome {
	idx := node.Tree()
	o := verifyOutcome{node: node}

	if needsHierarchy {
		url, b, err := src.Fetch(ctx, idx.HierarchyPath(node))
		if err == nil {
			o.specs, err = octree.ParseHierarchy(node.Name(), b, idx.Manifest().HierarchyStepSize)
		}
		if err != nil {
			o.err = &BranchError{Node: node.Name(), URL: url, Err: err}
			return o
		}
	}

	url, b, err := src.Fetch(ctx, idx.PayloadPath(node))
	if err != nil {
		o.err = &LoadError{Node: node.Name(), URL: url, Kind: loader.KindTransport, Err: err}
		return o
	}
	decoder := src.Decoder
	if decoder == nil {
		decoder = loader.DecoderFor(idx)
	}
	buf, err := decoder.Decode(node, b)
	if err != nil {
		o.err = &LoadError{Node: node.Name(), URL: url, Kind: loader.KindParse, Err: err}
		return o
	}
	o.points = buf.NumPoints

	if buf.NumPoints != node.NumPoints() {
		o.err = &LoadError{Node: node.Name(), URL: url, Kind: loader.KindParse,
			Err: fmt.Errorf("decoded %d points, hierarchy declares %d", buf.NumPoints, node.NumPoints())}
		return o
	}
	tolerance := idx.Scale()
	box := node.BoundingBox()
	tight := buf.TightBoundingBox
	if buf.NumPoints > 0 && (tight.Xmin < box.Xmin-tolerance || tight.Ymin < box.Ymin-tolerance || tight.Zmin < box.Zmin-tolerance ||
		tight.Xmax > box.Xmax+tolerance || tight.Ymax > box.Ymax+tolerance || tight.Zmax > box.Zmax+tolerance) {
		o.err = &LoadError{Node: node.Name(), URL: url, Kind: loader.KindParse,
			Err: fmt.Errorf("points extend outside of the node box")}
	}
	return o
}
