package octree

import "sync/atomic"

type NodeID uint32

// Hands out dense node ids for one index, starting at zero
type IDAllocator struct {
	next atomic.Uint32
}

func (a *IDAllocator) Next() NodeID {
	return NodeID(a.next.Add(1) - 1)
}

// Number of ids handed out so far
func (a *IDAllocator) Len() int {
	return int(a.next.Load())
}
