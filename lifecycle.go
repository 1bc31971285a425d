package audiograph

import (
	"time"

	"github.com/gosignal/audiograph/bus"
)

// Start begins pumping quanta on a ticker sized to the configured quantum
// duration, invoking cb with each rendered bus — a standalone simulated
// realtime driver for contexts not wired to a real device callback.
// Mirrors macaudio.Engine's Start/Stop/Pause surface (§5.1).
func (ctx *Context) Start(cb func(*bus.Bus)) error {
	ctx.runMu.Lock()
	defer ctx.runMu.Unlock()
	if ctx.running {
		return NewConditionError(InvalidArgument, "context already running")
	}
	ctx.stopCh = make(chan struct{})
	ctx.doneCh = make(chan struct{})
	ctx.running = true

	quantumDuration := time.Duration(float64(ctx.config.QuantumSize) / ctx.config.SampleRate * float64(time.Second))

	go func() {
		defer close(ctx.doneCh)
		ticker := time.NewTicker(quantumDuration)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.stopCh:
				return
			case <-ticker.C:
				out := ctx.RenderQuantum(ctx.config.QuantumSize)
				if cb != nil {
					cb(out)
				}
			}
		}
	}()
	return nil
}

// Stop halts the render ticker and waits for it to exit. The graph itself
// is left intact; Start may be called again afterward.
func (ctx *Context) Stop() {
	ctx.runMu.Lock()
	if !ctx.running {
		ctx.runMu.Unlock()
		return
	}
	ctx.running = false
	close(ctx.stopCh)
	doneCh := ctx.doneCh
	ctx.runMu.Unlock()
	<-doneCh
}

// Suspend is an alias for Stop that preserves graph state, matching
// macaudio.Engine.Pause's semantics of a resumable halt rather than a
// teardown.
func (ctx *Context) Suspend() { ctx.Stop() }

// Resume restarts rendering with the same callback semantics as the
// initial Start call.
func (ctx *Context) Resume(cb func(*bus.Bus)) error { return ctx.Start(cb) }

// Close stops rendering and, holding both locks, drains every pending
// dirty-junction and finished-source op. It does not disconnect or release
// any node. Mirrors macaudio.Engine.Destroy.
func (ctx *Context) Close() error {
	ctx.Stop()
	tok := ctx.graphLock.Lock()
	defer ctx.graphLock.Unlock(tok)
	renderTok := ctx.renderLock.Lock()
	defer ctx.renderLock.Unlock(renderTok)
	ctx.graph.dirtyJunctions.Drain()
	ctx.graph.finishedSources.Drain()
	return nil
}
