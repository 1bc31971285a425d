package audiograph

import (
	"sync/atomic"
	"time"

	"github.com/gosignal/audiograph/lock"
)

// dispatcherTarget is the per-operation duration the Dispatcher warns
// about when exceeded, mirroring macaudio.Dispatcher's 300ms target.
const dispatcherTarget = 300 * time.Millisecond

// dispatcherOp is one serialized topology mutation: a closure that runs
// under the Graph lock, plus the channel its result is delivered on.
// Mirrors macaudio.Dispatcher's DispatcherOperation/Response-channel shape
// exactly, adapted from "mutate AVFoundation nodes" to "mutate the
// software graph."
type dispatcherOp struct {
	apply    func(lock.GraphToken) error
	response chan error
}

// Dispatcher serializes the topology-mutating calls it offers (Connect,
// Disconnect, DisconnectAllFrom, DisconnectAllTo) through a single worker
// goroutine holding the Graph lock, so main-thread callers never race each
// other's edits and every edit's wall-clock cost is tracked.
type Dispatcher struct {
	ctx        *Context
	operations chan dispatcherOp
	closeCh    chan struct{}
	doneCh     chan struct{}

	lastOperationDuration int64 // atomic, nanoseconds
	maxOperationDuration  int64 // atomic, nanoseconds
}

func newDispatcher(ctx *Context) *Dispatcher {
	d := &Dispatcher{
		ctx:        ctx,
		operations: make(chan dispatcherOp, 64),
		closeCh:    make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	go d.dispatchLoop()
	return d
}

func (d *Dispatcher) dispatchLoop() {
	defer close(d.doneCh)
	for {
		select {
		case <-d.closeCh:
			return
		case op := <-d.operations:
			start := time.Now()
			tok := d.ctx.graphLock.Lock()
			err := op.apply(tok)
			d.ctx.graphLock.Unlock(tok)
			dur := time.Since(start)

			atomic.StoreInt64(&d.lastOperationDuration, int64(dur))
			for {
				cur := atomic.LoadInt64(&d.maxOperationDuration)
				if int64(dur) <= cur {
					break
				}
				if atomic.CompareAndSwapInt64(&d.maxOperationDuration, cur, int64(dur)) {
					break
				}
			}
			if dur > dispatcherTarget {
				d.ctx.logger.Warn("dispatcher operation exceeded target duration", "duration", dur, "target", dispatcherTarget)
			}
			op.response <- err
		}
	}
}

func (d *Dispatcher) run(fn func(lock.GraphToken) error) error {
	resp := make(chan error, 1)
	d.operations <- dispatcherOp{apply: fn, response: resp}
	return <-resp
}

// Connect serializes graph.Connect through the dispatch worker.
func (d *Dispatcher) Connect(dst *Input, src *Output) error {
	return d.run(func(tok lock.GraphToken) error {
		return d.ctx.graph.Connect(tok, dst, src)
	})
}

// Disconnect serializes graph.Disconnect through the dispatch worker.
func (d *Dispatcher) Disconnect(dst *Input, src *Output) error {
	return d.run(func(tok lock.GraphToken) error {
		d.ctx.graph.Disconnect(tok, dst, src)
		return nil
	})
}

// DisconnectAllFrom serializes graph.DisconnectAllFrom.
func (d *Dispatcher) DisconnectAllFrom(n Node) error {
	return d.run(func(tok lock.GraphToken) error {
		d.ctx.graph.DisconnectAllFrom(tok, n)
		return nil
	})
}

// DisconnectAllTo serializes graph.DisconnectAllTo.
func (d *Dispatcher) DisconnectAllTo(n Node) error {
	return d.run(func(tok lock.GraphToken) error {
		d.ctx.graph.DisconnectAllTo(tok, n)
		return nil
	})
}

// LastOperationDuration reports the wall-clock cost of the most recently
// completed dispatch.
func (d *Dispatcher) LastOperationDuration() time.Duration {
	return time.Duration(atomic.LoadInt64(&d.lastOperationDuration))
}

// MaxOperationDuration reports the slowest dispatch seen so far.
func (d *Dispatcher) MaxOperationDuration() time.Duration {
	return time.Duration(atomic.LoadInt64(&d.maxOperationDuration))
}

// Close stops the dispatch worker, waiting for in-flight operations to
// finish.
func (d *Dispatcher) Close() {
	close(d.closeCh)
	<-d.doneCh
}
