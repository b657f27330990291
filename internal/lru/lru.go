// Package lru keeps loaded octree nodes in recency order and releases the coldest payloads
// when the total number of resident points exceeds the point budget.
//
// The cache is not safe for concurrent use. It is owned by the scheduling goroutine.
package lru

import (
	"container/list"

	"github.com/ecopia-map/potree_streamer/internal/octree"
)

// Called after a node has been unlinked by an eviction, to drop its payload
type ReleaseFunc func(node *octree.Node)

type entry struct {
	node      *octree.Node
	numPoints int
}

type Cache struct {
	pointBudget int
	numPoints   int
	items       map[*octree.Node]*list.Element
	recency     *list.List // front is the most recently touched
	release     ReleaseFunc
}

func New(pointBudget int, release ReleaseFunc) *Cache {
	return &Cache{
		pointBudget: pointBudget,
		items:       make(map[*octree.Node]*list.Element),
		recency:     list.New(),
		release:     release,
	}
}

// Moves node to the head, inserting it with its current point count when absent
func (c *Cache) Touch(node *octree.Node) {
	if el, ok := c.items[node]; ok {
		c.recency.MoveToFront(el)
		return
	}
	e := &entry{node: node, numPoints: node.NumPoints()}
	c.items[node] = c.recency.PushFront(e)
	c.numPoints += e.numPoints
}

// Unlinks node without releasing its payload
func (c *Cache) Remove(node *octree.Node) bool {
	el, ok := c.items[node]
	if !ok {
		return false
	}
	c.unlink(el)
	return true
}

func (c *Cache) unlink(el *list.Element) *octree.Node {
	e := c.recency.Remove(el).(*entry)
	delete(c.items, e.node)
	c.numPoints -= e.numPoints
	return e.node
}

func (c *Cache) evict(el *list.Element) *octree.Node {
	node := c.unlink(el)
	node.MarkUnloaded()
	if c.release != nil {
		c.release(node)
	}
	return node
}

func (c *Cache) Has(node *octree.Node) bool {
	_, ok := c.items[node]
	return ok
}

func (c *Cache) Len() int {
	return len(c.items)
}

// Sum of the point counts of all entries
func (c *Cache) NumPoints() int {
	return c.numPoints
}

func (c *Cache) PointBudget() int {
	return c.pointBudget
}

func (c *Cache) SetPointBudget(n int) {
	c.pointBudget = n
}

// Least recently touched node
func (c *Cache) LRUItem() (*octree.Node, bool) {
	el := c.recency.Back()
	if el == nil {
		return nil, false
	}
	return el.Value.(*entry).node, true
}

// Nodes from the most to the least recently touched
func (c *Cache) Nodes() []*octree.Node {
	nodes := make([]*octree.Node, 0, len(c.items))
	for el := c.recency.Front(); el != nil; el = el.Next() {
		nodes = append(nodes, el.Value.(*entry).node)
	}
	return nodes
}

// Evicts the coldest entries until the total fits the budget. The most recent entry is kept
// even when it alone exceeds the budget.
func (c *Cache) FreeMemory() []*octree.Node {
	var evicted []*octree.Node
	for c.numPoints > c.pointBudget && c.recency.Len() > 1 {
		evicted = append(evicted, c.evict(c.recency.Back()))
	}
	return evicted
}

// Evicts node and every indexed descendant
func (c *Cache) DisposeSubtree(node *octree.Node) []*octree.Node {
	var evicted []*octree.Node
	node.Traverse(func(n *octree.Node) bool {
		if el, ok := c.items[n]; ok {
			evicted = append(evicted, c.evict(el))
		} else if n.IsLoaded() {
			n.MarkUnloaded()
			if c.release != nil {
				c.release(n)
			}
			evicted = append(evicted, n)
		}
		return true
	})
	return evicted
}

// Evicts every entry
func (c *Cache) Dispose() []*octree.Node {
	var evicted []*octree.Node
	for c.recency.Len() > 0 {
		evicted = append(evicted, c.evict(c.recency.Back()))
	}
	return evicted
}
