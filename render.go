package audiograph

import (
	"sync/atomic"
	"time"

	"github.com/gosignal/audiograph/bus"
)

// RenderContext carries per-quantum bookkeeping through the pull
// recursion: the quantum's start time, the sample rate, the absolute
// frame index, and the in-place-optimization hint passed from a consumer
// to the output it is pulling (§4.B).
type RenderContext struct {
	Now        float64
	SampleRate float64
	FrameIndex uint64

	inPlaceHint *bus.Bus
}

// InPlaceHint returns the bus an Output may write directly into instead of
// its own internal bus, if its fan-out is 1 and channel counts match.
func (rc *RenderContext) InPlaceHint() *bus.Bus { return rc.inPlaceHint }

// RenderQuantum is the sole hot-path entry point (§6 "Render callback"):
// it drains dirty queues (if the Graph lock is free), pulls the
// destination input through the whole graph, advances the sample-frame
// counter, and runs post-render bookkeeping. Must complete in under one
// quantum's wall-clock time; RenderStats.Underruns counts violations.
func (ctx *Context) RenderQuantum(frames int) *bus.Bus {
	renderTok := ctx.renderLock.Lock()
	defer ctx.renderLock.Unlock(renderTok)

	start := time.Now()

	if graphTok, ok := ctx.graphLock.TryLock(); ok {
		ctx.graph.preRenderFlush(renderTok)
		ctx.graphLock.Unlock(graphTok)
	}
	// On TryLock failure the audio thread renders from the last-known
	// rendering snapshots, per §4.F — no special-casing needed here since
	// Input.pull always reads renderConnections, never liveConnections.

	rc := &RenderContext{
		Now:        ctx.CurrentTime(),
		SampleRate: ctx.config.SampleRate,
		FrameIndex: atomic.LoadUint64(&ctx.frameCounter),
	}
	ctx.graph.currentRC = rc

	out := ctx.destinationInput.pull(rc, frames)
	ctx.graph.pullAutomaticNodes(rc, frames)

	atomic.AddUint64(&ctx.frameCounter, uint64(frames))

	if graphTok, ok := ctx.graphLock.TryLock(); ok {
		ctx.graph.postRenderTasks(renderTok)
		ctx.autoDispose.ReleaseFinished()
		ctx.graphLock.Unlock(graphTok)
	}

	ctx.graph.currentRC = nil

	ctx.recordStats(time.Since(start), float64(frames)/ctx.config.SampleRate)
	return out
}
