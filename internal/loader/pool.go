package loader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ecopia-map/potree_streamer/internal/data"
	"github.com/ecopia-map/potree_streamer/internal/octree"
	"github.com/golang/glog"
)

var _ Producer = (*Pool)(nil)

// Fixed set of consumer goroutines loading node payloads submitted by the scheduler. The in
// flight counter is the only state shared with the scheduling goroutine besides the completion
// queue.
type Pool struct {
	opts poolOptions
	work chan *WorkUnit
	wg   sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	inFlight atomic.Int32

	closeMu sync.RWMutex
	closed  bool

	mu          sync.Mutex
	completions []*Completion
}

func NewPool(opts ...Option) *Pool {
	o := defaultPoolOptions()
	for _, opt := range opts {
		opt(&o)
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		opts:   o,
		work:   make(chan *WorkUnit, o.queueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < o.workers; i++ {
		p.wg.Add(1)
		go (&Consumer{pool: p}).Consume(p.work, &p.wg)
	}
	glog.V(1).Infof("loader pool started with %d workers", o.workers)
	return p
}

// Queues the load of node without blocking. The node is flagged as loading on success.
func (p *Pool) Submit(node *octree.Node, src *Source) (*Future[*data.PointBuffer], error) {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		return nil, ErrLoaderClosed
	}

	w := &WorkUnit{
		Node:           node,
		Source:         src,
		NeedsHierarchy: node.Tree().NeedsHierarchy(node),
		Future:         NewFuture[*data.PointBuffer](),
		Submitted:      time.Now(),
	}
	p.inFlight.Add(1)
	select {
	case p.work <- w:
	default:
		p.inFlight.Add(-1)
		return nil, ErrQueueFull
	}
	node.MarkLoading()
	p.opts.metrics.LoadStarted()
	return w.Future, nil
}

// Number of submitted loads whose outcome is not queued yet
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}

func (p *Pool) complete(c *Completion) {
	p.mu.Lock()
	p.completions = append(p.completions, c)
	p.mu.Unlock()
}

// Hands over queued completions in arrival order: every failure, and at most maxApplied
// successes. A negative maxApplied means no limit. The boolean reports whether completions
// were left in the queue.
func (p *Pool) Drain(maxApplied int) ([]*Completion, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out, rest []*Completion
	applied := 0
	for _, c := range p.completions {
		if c.Err == nil {
			if maxApplied >= 0 && applied >= maxApplied {
				rest = append(rest, c)
				continue
			}
			applied++
		}
		out = append(out, c)
	}
	p.completions = rest
	return out, len(rest) > 0
}

// Number of completions waiting for Drain
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.completions)
}

// Stops accepting work, cancels pending fetches and waits for the workers to exit
func (p *Pool) Close() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	close(p.work)
	p.closeMu.Unlock()

	p.cancel()
	p.wg.Wait()
}
