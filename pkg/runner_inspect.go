package pkg

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ecopia-map/potree_streamer/internal/config"
	"github.com/ecopia-map/potree_streamer/internal/octree"
	"github.com/ecopia-map/potree_streamer/tools"
)

// Prints the manifest and the indexed hierarchy of every dataset
type Inspector struct {
	runnerBase
}

func (r *Inspector) Run(ctx context.Context, opts *config.CommandOptions) error {
	p, clouds, err := r.open(ctx, opts)
	if err != nil {
		return err
	}
	defer p.Close()

	for _, pc := range clouds {
		describe(os.Stdout, pc)
	}
	return nil
}

type levelStats struct {
	nodes  int
	points int64
}

// Node and point counts per level, breadth first from the root
func levelsOf(tree octree.ITree) []levelStats {
	var levels []levelStats
	wave := []*octree.Node{tree.Root()}
	for len(wave) > 0 {
		s := levelStats{}
		var next []*octree.Node
		for _, n := range wave {
			s.nodes++
			s.points += int64(n.NumPoints())
			for _, c := range tree.Children(n) {
				if c != nil {
					next = append(next, c)
				}
			}
		}
		levels = append(levels, s)
		wave = next
	}
	return levels
}

func describe(w io.Writer, pc *PointCloud) {
	m := pc.Manifest()
	idx := pc.Index()

	levels := levelsOf(idx)
	pending := 0
	idx.Traverse(func(n *octree.Node) bool {
		if idx.NeedsHierarchy(n) {
			pending++
		}
		return true
	})

	box := pc.BoundingBox()
	fmt.Fprintf(w, "%s\n", pc.URL())
	fmt.Fprintf(w, "  version      %s (%s payloads)\n", m.Version, idx.Format())
	fmt.Fprintf(w, "  points       %s\n", tools.FmtPoints(m.Points))
	fmt.Fprintf(w, "  attributes   %s\n", strings.Join(idx.Layout().Names(), ", "))
	fmt.Fprintf(w, "  spacing      %s, scale %s\n", m.Spacing, m.Scale)
	fmt.Fprintf(w, "  bounds       [%.3f %.3f %.3f] - [%.3f %.3f %.3f]\n", box.Xmin, box.Ymin, box.Zmin, box.Xmax, box.Ymax, box.Zmax)
	if m.Projection != "" {
		fmt.Fprintf(w, "  projection   %s\n", m.Projection)
	}
	fmt.Fprintf(w, "  indexed      %d nodes, %d sub-hierarchies not loaded\n", idx.Len(), pending)
	for level, s := range levels {
		fmt.Fprintf(w, "    level %-3d %6d nodes %10s points\n", level, s.nodes, tools.FmtPoints(s.points))
	}
}
