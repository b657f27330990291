package scheduler

import (
	"container/heap"

	"github.com/ecopia-map/potree_streamer/internal/octree"
)

var _ heap.Interface = (*priorityQueue)(nil)

type queueItem struct {
	cloud  int
	node   *octree.Node
	parent *octree.Node
	weight float64
	index  int
}

// Max heap on weight. Ties go to the shallower node, then the lower octant path, then the lower
// cloud index so every pass pops nodes in the same order.
type priorityQueue struct {
	items []*queueItem
}

func (pq *priorityQueue) Len() int { return len(pq.items) }

func (pq *priorityQueue) Less(i, j int) bool {
	a, b := pq.items[i], pq.items[j]
	if a.weight != b.weight {
		return a.weight > b.weight
	}
	if a.node.Level() != b.node.Level() {
		return a.node.Level() < b.node.Level()
	}
	if a.node.Name() != b.node.Name() {
		return a.node.Name() < b.node.Name()
	}
	return a.cloud < b.cloud
}

func (pq *priorityQueue) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
	pq.items[i].index, pq.items[j].index = i, j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*queueItem)
	item.index = len(pq.items)
	pq.items = append(pq.items, item)
}

func (pq *priorityQueue) Pop() any {
	old := pq.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	pq.items = old[:n-1]
	return item
}

func (pq *priorityQueue) push(item *queueItem) {
	heap.Push(pq, item)
}

func (pq *priorityQueue) pop() *queueItem {
	return heap.Pop(pq).(*queueItem)
}
