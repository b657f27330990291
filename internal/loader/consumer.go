package loader

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ecopia-map/potree_streamer/internal/octree"
	"github.com/golang/glog"
)

type Consumer struct {
	pool *Pool
}

// Continually consumes WorkUnits submitted to the work channel, queueing one completion per unit.
// Continues working until the work channel is closed.
func (c *Consumer) Consume(workchan chan *WorkUnit, waitGroup *sync.WaitGroup) {
	defer waitGroup.Done()
	for {
		work, ok := <-workchan
		if !ok {
			// channel was closed by the pool, quit infinite loop
			break
		}
		c.doWork(work)
	}
}

// Loads the node of a WorkUnit, then hands the outcome to the scheduler unless the node was
// disposed meanwhile
func (c *Consumer) doWork(w *WorkUnit) {
	p := c.pool
	defer p.inFlight.Add(-1)

	comp, bytes := c.load(w)
	kind := ""
	if comp.Err != nil {
		kind = errorKind(comp.Err)
	}
	p.opts.metrics.LoadFinished(w.Submitted, bytes, kind)

	if w.Node.Disposed() {
		glog.V(2).Infof("discarding payload of disposed node %s", w.Node.Key())
		p.opts.metrics.LoadDiscarded()
		w.Future.Resolve(nil, ErrNodeDisposed)
		return
	}

	if comp.Err != nil {
		glog.Warningf("%v", comp.Err)
	} else {
		glog.V(2).Infof("loaded node %s, %d points in %s", w.Node.Key(), comp.Buffer.NumPoints, time.Since(w.Submitted))
	}
	p.complete(comp)
	w.Future.Resolve(comp.Buffer, comp.Err)
}

func (c *Consumer) load(w *WorkUnit) (*Completion, int) {
	node := w.Node
	idx := node.Tree()
	comp := &Completion{Node: node}
	bytes := 0

	if w.NeedsHierarchy {
		hrcPath := idx.HierarchyPath(node)
		url, b, err := c.fetch(w.Source, hrcPath)
		bytes += len(b)
		if err != nil {
			comp.Err = &octree.BranchError{Node: node.Name(), URL: url, Err: err}
			return comp, bytes
		}
		specs, err := octree.ParseHierarchy(node.Name(), b, idx.Manifest().HierarchyStepSize)
		if err != nil {
			comp.Err = &octree.BranchError{Node: node.Name(), URL: url, Err: err}
			return comp, bytes
		}
		comp.Hierarchy = specs
	}

	url, b, err := c.fetch(w.Source, idx.PayloadPath(node))
	bytes += len(b)
	if err != nil {
		comp.Err = &LoadError{Node: node.Name(), URL: url, Kind: KindTransport, Err: err}
		return comp, bytes
	}

	buf, err := w.Source.decoder(idx).Decode(node, b)
	if err != nil {
		comp.Err = &LoadError{Node: node.Name(), URL: url, Kind: KindParse, Err: err}
		return comp, bytes
	}
	comp.Buffer = buf
	return comp, bytes
}

func (c *Consumer) fetch(src *Source, path string) (string, []byte, error) {
	p := c.pool
	ctx := p.ctx
	if p.opts.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.fetchTimeout)
		defer cancel()
	}
	url, b, err := src.Fetch(ctx, path)
	if err != nil {
		return url, nil, err
	}
	if err := c.throttle(ctx, len(b)); err != nil {
		return url, nil, err
	}
	return url, b, nil
}

// Waits until the rate limiter grants n bytes, in chunks no larger than its burst
func (c *Consumer) throttle(ctx context.Context, n int) error {
	limiter := c.pool.opts.limiter
	if limiter == nil {
		return nil
	}
	burst := limiter.Burst()
	for n > 0 {
		chunk := n
		if chunk > burst {
			chunk = burst
		}
		if err := limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

func errorKind(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return string(loadErr.Kind)
	}
	return "branch"
}
