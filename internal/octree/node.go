package octree

import (
	"strconv"
	"sync/atomic"

	"github.com/ecopia-map/potree_streamer/internal/geometry"
)

// Structural node of the octree. The structure is created once and never destroyed; the
// payload state flags are owned by the scheduling goroutine, only the disposed flag is read
// by loader workers.
type Node struct {
	id        NodeID
	name      string
	level     int
	tree      *Index
	parent    *Node
	children  [8]*Node
	childMask uint8
	numPoints int
	spacing   float64

	boundingBox      *geometry.BoundingBox
	boundingSphere   geometry.Sphere
	tightBoundingBox *geometry.BoundingBox

	loaded  bool
	loading bool
	failed  bool

	disposed atomic.Bool
}

func newNode(tree *Index, parent *Node, name string, bbox *geometry.BoundingBox, numPoints int, childMask uint8) *Node {
	n := &Node{
		id:             tree.ids.Next(),
		name:           name,
		level:          len(name),
		tree:           tree,
		parent:         parent,
		childMask:      childMask,
		numPoints:      numPoints,
		spacing:        tree.spacingAt(len(name)),
		boundingBox:    bbox,
		boundingSphere: bbox.BoundingSphere(),
	}
	return n
}

func (n *Node) ID() NodeID {
	return n.id
}

// Path digits from the root, empty for the root itself
func (n *Node) Name() string {
	return n.name
}

// Name used for files, e.g. "r" for the root and "r04" for its grandchild
func (n *Node) Key() string {
	return "r" + n.name
}

func (n *Node) Level() int {
	return n.level
}

// Octant of the node inside its parent, -1 for the root
func (n *Node) Octant() int {
	if n.name == "" {
		return -1
	}
	o, _ := strconv.Atoi(n.name[len(n.name)-1:])
	return o
}

func (n *Node) IsRoot() bool {
	return n.parent == nil
}

func (n *Node) Parent() *Node {
	return n.parent
}

func (n *Node) Tree() *Index {
	return n.tree
}

func (n *Node) Children() [8]*Node {
	return n.children
}

func (n *Node) ChildMask() uint8 {
	return n.childMask
}

// Reports whether the hierarchy declares children, indexed or not
func (n *Node) HasChildren() bool {
	return n.childMask != 0
}

// A node is a leaf when none of its child slots is populated
func (n *Node) IsLeaf() bool {
	for _, c := range n.children {
		if c != nil {
			return false
		}
	}
	return true
}

func (n *Node) NumPoints() int {
	return n.numPoints
}

// Size in bytes of the node payload
func (n *Node) ByteSize() int {
	return n.numPoints * n.tree.layout.ByteSize
}

func (n *Node) Spacing() float64 {
	return n.spacing
}

func (n *Node) BoundingBox() *geometry.BoundingBox {
	return n.boundingBox
}

func (n *Node) BoundingSphere() geometry.Sphere {
	return n.boundingSphere
}

// Box of the decoded points, nil until the payload has been loaded once
func (n *Node) TightBoundingBox() *geometry.BoundingBox {
	return n.tightBoundingBox
}

func (n *Node) SetTightBoundingBox(b *geometry.BoundingBox) {
	n.tightBoundingBox = b
}

func (n *Node) IsLoaded() bool {
	return n.loaded
}

func (n *Node) IsLoading() bool {
	return n.loading
}

func (n *Node) IsFailed() bool {
	return n.failed
}

func (n *Node) MarkLoading() {
	n.loading = true
}

func (n *Node) MarkLoaded() {
	n.loading = false
	n.loaded = true
	n.failed = false
}

func (n *Node) MarkFailed() {
	n.loading = false
	n.loaded = false
	n.failed = true
}

// Drops the payload state, the structure stays indexed
func (n *Node) MarkUnloaded() {
	n.loaded = false
	n.loading = false
}

// Makes a failed node eligible for loading again
func (n *Node) ResetFailed() {
	n.failed = false
}

func (n *Node) Disposed() bool {
	return n.disposed.Load()
}

func (n *Node) Dispose() {
	n.disposed.Store(true)
}

// Visits the node and its indexed descendants in depth first order. Returning false from fn skips
// the children of the visited node.
func (n *Node) Traverse(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		if c != nil {
			c.Traverse(fn)
		}
	}
}
