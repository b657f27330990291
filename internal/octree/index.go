package octree

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync/atomic"

	"github.com/ecopia-map/potree_streamer/internal/data"
	"github.com/ecopia-map/potree_streamer/internal/geometry"
	"github.com/ecopia-map/potree_streamer/internal/version"
	"github.com/golang/geo/r3"
	"github.com/golang/glog"
	"github.com/shopspring/decimal"
)

var _ ITree = (*Index)(nil)

// Index owns the node arena of one dataset. Nodes are addressed by dense ids and by name.
// The structure only grows, through AttachHierarchy on the scheduling goroutine.
type Index struct {
	manifest *Manifest
	layout   *data.PointAttributes
	ids      IDAllocator
	nodes    []*Node
	byName   map[string]*Node
	root     *Node

	spacing  decimal.Decimal
	disposed atomic.Bool
}

// Builds the index of the dataset described by m. The root hierarchy is fetched through src when the
// format keeps it in chunks. No point payload is fetched. Every failure is a *StructuralError.
func NewIndex(ctx context.Context, m *Manifest, src HierarchyFetcher) (*Index, error) {
	idx := &Index{
		manifest: m,
		layout:   m.Layout(),
		byName:   make(map[string]*Node),
		spacing:  m.Spacing,
	}

	var specs []NodeSpec
	if m.FormatVersion().ChunkedHierarchy() {
		root := &Node{name: ""}
		hrcPath := idx.hierarchyPathFor(root)
		b, err := src.FetchHierarchy(ctx, hrcPath)
		if err != nil {
			return nil, &StructuralError{URL: hrcPath, Err: err}
		}
		specs, err = ParseHierarchy("", b, m.HierarchyStepSize)
		if err != nil {
			return nil, &StructuralError{URL: hrcPath, Err: err}
		}
	} else {
		var err error
		specs, err = specsFromEntries(m.Hierarchy)
		if err != nil {
			return nil, &StructuralError{Err: err}
		}
	}

	idx.root = newNode(idx, nil, "", m.LocalBoundingBox(), specs[0].NumPoints, specs[0].ChildMask)
	idx.add(idx.root)
	if err := idx.attach(specs[1:]); err != nil {
		return nil, &StructuralError{Err: err}
	}

	glog.V(1).Infof("indexed %d nodes of %s dataset version %s", len(idx.nodes), m.Format(), m.Version)
	return idx, nil
}

func (idx *Index) add(n *Node) {
	idx.nodes = append(idx.nodes, n)
	idx.byName[n.name] = n
}

// Creates the nodes described by specs. Parents must precede their children.
func (idx *Index) attach(specs []NodeSpec) error {
	for _, s := range specs {
		if s.Name == "" {
			return fmt.Errorf("root listed twice")
		}
		parent, ok := idx.byName[s.Name[:len(s.Name)-1]]
		if !ok {
			return fmt.Errorf("parent of node r%s not indexed", s.Name)
		}
		octant, err := parseOctant(s.Name)
		if err != nil {
			return err
		}
		if parent.childMask&(1<<octant) == 0 {
			return fmt.Errorf("node r%s not declared by the child mask of its parent", s.Name)
		}
		if parent.children[octant] != nil {
			continue
		}
		bbox := geometry.NewBoundingBoxFromParent(parent.boundingBox, &octant)
		child := newNode(idx, parent, s.Name, bbox, s.NumPoints, s.ChildMask)
		parent.children[octant] = child
		idx.add(child)
	}
	return nil
}

// Attaches a sub-hierarchy rooted at node, as returned by ParseHierarchy. A chunk that does not
// agree with the already indexed node is rejected with a *BranchError and nothing is attached.
func (idx *Index) AttachHierarchy(node *Node, specs []NodeSpec) error {
	branchErr := func(err error) error {
		return &BranchError{Node: node.name, URL: idx.HierarchyPath(node), Err: err}
	}
	if len(specs) == 0 || specs[0].Name != node.name {
		return branchErr(fmt.Errorf("chunk root does not match node"))
	}
	if specs[0].ChildMask != node.childMask {
		return branchErr(fmt.Errorf("chunk child mask %08b differs from indexed mask %08b", specs[0].ChildMask, node.childMask))
	}
	for _, s := range specs[1:] {
		if !strings.HasPrefix(s.Name, node.name) {
			return branchErr(fmt.Errorf("node r%s outside of the chunk", s.Name))
		}
	}
	if err := idx.attach(specs[1:]); err != nil {
		return branchErr(err)
	}
	return nil
}

// Reports whether the children of node live in a hierarchy chunk not fetched yet
func (idx *Index) NeedsHierarchy(node *Node) bool {
	if !idx.manifest.FormatVersion().ChunkedHierarchy() {
		return false
	}
	step := idx.manifest.HierarchyStepSize
	return node.level > 0 && node.level%step == 0 && node.HasChildren() && node.IsLeaf()
}

func (idx *Index) Root() *Node {
	return idx.root
}

// Looks a node up by its path digits. The "r" prefix of file names is accepted.
func (idx *Index) Resolve(name string) (*Node, bool) {
	name = strings.TrimPrefix(name, "r")
	n, ok := idx.byName[name]
	return n, ok
}

func (idx *Index) Children(node *Node) [8]*Node {
	return node.children
}

func (idx *Index) Node(id NodeID) *Node {
	if int(id) >= len(idx.nodes) {
		return nil
	}
	return idx.nodes[id]
}

func (idx *Index) Len() int {
	return len(idx.nodes)
}

// Visits every indexed node in depth first order
func (idx *Index) Traverse(fn func(*Node) bool) {
	idx.root.Traverse(fn)
}

func (idx *Index) Manifest() *Manifest {
	return idx.manifest
}

func (idx *Index) Version() *version.Version {
	return idx.manifest.FormatVersion()
}

func (idx *Index) Layout() *data.PointAttributes {
	return idx.layout
}

func (idx *Index) Format() PayloadFormat {
	return idx.manifest.Format()
}

func (idx *Index) Offset() r3.Vector {
	return idx.manifest.Offset()
}

func (idx *Index) Scale() float64 {
	return idx.manifest.ScaleFloat()
}

func (idx *Index) BoundingBox() *geometry.BoundingBox {
	return idx.root.boundingBox
}

func (idx *Index) TightBoundingBox() *geometry.BoundingBox {
	return idx.manifest.LocalTightBoundingBox()
}

// Marks the index and all its nodes as disposed so pending loads are discarded
func (idx *Index) Dispose() {
	idx.disposed.Store(true)
	for _, n := range idx.nodes {
		n.Dispose()
	}
}

func (idx *Index) Disposed() bool {
	return idx.disposed.Load()
}

func (idx *Index) spacingAt(level int) float64 {
	return idx.spacing.Div(decimal.NewFromInt(int64(1) << uint(level))).InexactFloat64()
}

// Directory of the hierarchy chunk holding node, e.g. "r/01234" for node r01234567 with step 5
func (idx *Index) hierarchyDir(node *Node) string {
	step := idx.manifest.HierarchyStepSize
	parts := []string{"r"}
	if step > 0 {
		for i := 0; i+step <= len(node.name); i += step {
			parts = append(parts, node.name[i:i+step])
		}
	}
	return strings.Join(parts, "/")
}

func (idx *Index) hierarchyPathFor(node *Node) string {
	return path.Join(idx.manifest.OctreeDir, idx.hierarchyDir(node), node.Key()+".hrc")
}

// Path of the hierarchy chunk rooted at node, relative to the manifest
func (idx *Index) HierarchyPath(node *Node) string {
	return idx.hierarchyPathFor(node)
}

// Path of the point payload of node, relative to the manifest
func (idx *Index) PayloadPath(node *Node) string {
	v := idx.Version()
	var p string
	if v.ChunkedHierarchy() {
		p = path.Join(idx.manifest.OctreeDir, idx.hierarchyDir(node), node.Key())
	} else {
		p = path.Join(idx.manifest.OctreeDir, node.Key())
	}

	switch idx.Format() {
	case FormatLAS:
		return p + ".las"
	case FormatLAZ:
		return p + ".laz"
	}
	if v.BinExtension() {
		return p + ".bin"
	}
	return p
}
