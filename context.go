package audiograph

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gosignal/audiograph/bus"
	"github.com/gosignal/audiograph/lock"
	"github.com/gosignal/audiograph/param"
	"github.com/gosignal/audiograph/schedule"
)

// StreamConfig describes the audio stream a Context renders for (§6
// "Audio stream config"), mirroring macaudio.session.AudioSpec's shape
// (PreferredSampleRate/LatencyHint/BufferSize) adapted to this engine's
// quantum-based rendering.
type StreamConfig struct {
	SampleRate      float64
	QuantumSize     int
	DesiredChannels int
}

// DefaultStreamConfig matches the common 48kHz/128-frame/stereo case.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{SampleRate: 48000, QuantumSize: 128, DesiredChannels: 2}
}

// Validate mirrors macaudio.NewEngine's constructor-validation style
// ("bufferSize must be at least 16... at most 2048", "invalid sample rate
// index"), adapted to this engine's {sampleRate, quantumSize} bounds.
func (c StreamConfig) Validate() error {
	if c.QuantumSize < 32 || c.QuantumSize > 2048 {
		return NewConditionError(InvalidArgument, "quantum size must be between 32 and 2048, got %d", c.QuantumSize)
	}
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return NewConditionError(InvalidArgument, "sample rate must be between 8000 and 192000, got %v", c.SampleRate)
	}
	if c.DesiredChannels < 1 || c.DesiredChannels > maxChannelsPerContext {
		return NewConditionError(InvalidArgument, "desired channels must be between 1 and %d, got %d", maxChannelsPerContext, c.DesiredChannels)
	}
	return nil
}

// RenderStats mirrors macaudio.Dispatcher's lastOperationDuration /
// maxOperationDuration tracking, adapted into per-quantum render
// performance counters (§5.1 "Performance/underrun counters").
type RenderStats struct {
	QuantaRendered     uint64
	Underruns          uint64
	LastRenderDuration time.Duration
	MaxRenderDuration  time.Duration
}

// Context is the top-level owner (§3 Context): the graph, the listener,
// the sample rate, the sample-frame counter, and the two locks.
type Context struct {
	graph      *Graph
	graphLock  lock.GraphLock
	renderLock lock.RenderLock

	config StreamConfig

	frameCounter uint64 // atomic

	destinationInput *Input

	listener *Listener

	errorHandler ErrorHandler
	logger       *log.Logger

	autoDispose schedule.AutoDisposeList

	statsMu sync.Mutex
	stats   RenderStats

	dispatcher *Dispatcher

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewContext validates cfg and constructs a Context with an empty graph
// and a single destination input. Mirrors macaudio.NewEngine's eager
// validate-then-construct style.
func NewContext(cfg StreamConfig) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := newGraph()
	ctx := &Context{
		graph:        g,
		config:       cfg,
		listener:     newListener(),
		errorHandler: NewDefaultErrorHandler(nil),
		logger:       log.Default(),
	}
	ctx.destinationInput = newInput(g, 0, 0, cfg.QuantumSize, cfg.SampleRate)
	ctx.dispatcher = newDispatcher(ctx)
	return ctx, nil
}

// SetErrorHandler installs the handler invoked for errors occurring
// inside the render callback (§7 Policy: never surfaced synchronously).
func (ctx *Context) SetErrorHandler(h ErrorHandler) { ctx.errorHandler = h }

// SetLogger overrides the default structured logger.
func (ctx *Context) SetLogger(l *log.Logger) { ctx.logger = l }

// SampleRate returns the fixed sample rate for the life of the context.
func (ctx *Context) SampleRate() float64 { return ctx.config.SampleRate }

// QuantumSize returns the configured render-quantum frame count.
func (ctx *Context) QuantumSize() int { return ctx.config.QuantumSize }

// CurrentTime derives seconds from the monotonically advancing
// sample-frame counter (§5 "currentTime is derived as
// currentSampleFrame / sampleRate").
func (ctx *Context) CurrentTime() float64 {
	return float64(atomic.LoadUint64(&ctx.frameCounter)) / ctx.config.SampleRate
}

// Graph returns the owned Graph, for package-internal and dspnode-package
// node construction.
func (ctx *Context) Graph() *Graph { return ctx.graph }

// Destination returns the context's root summing junction; callers
// connect the final mix node's output into it.
func (ctx *Context) Destination() *Input { return ctx.destinationInput }

// Listener returns the spatial listener state (§6).
func (ctx *Context) Listener() *Listener { return ctx.listener }

// Dispatcher returns the serialized topology-mutation dispatcher.
func (ctx *Context) Dispatcher() *Dispatcher { return ctx.dispatcher }

// Stats returns a snapshot of the render-performance counters.
func (ctx *Context) Stats() RenderStats {
	ctx.statsMu.Lock()
	defer ctx.statsMu.Unlock()
	return ctx.stats
}

func (ctx *Context) recordStats(d time.Duration, quantumSeconds float64) {
	ctx.statsMu.Lock()
	defer ctx.statsMu.Unlock()
	ctx.stats.QuantaRendered++
	ctx.stats.LastRenderDuration = d
	if d > ctx.stats.MaxRenderDuration {
		ctx.stats.MaxRenderDuration = d
	}
	if d.Seconds() > quantumSeconds {
		ctx.stats.Underruns++
	}
}

// NewBaseNode allocates node arena state: a fresh NodeID, numInputs
// Inputs, and len(outputChannelCounts) Outputs each sized per
// outputChannelCounts[i]. Concrete node constructors in the dspnode
// package call this first, then embed the returned *BaseNode.
func (ctx *Context) NewBaseNode(kind string, numInputs int, outputChannelCounts []int) *BaseNode {
	id := ctx.graph.nextNodeID()
	b := &BaseNode{
		id:                    id,
		kind:                  kind,
		lastProcessingTime:    -1,
		graph:                 ctx.graph,
		channelCount:          2,
		channelCountMode:      bus.Max,
		channelInterpretation: bus.Speakers,
	}
	for i := 0; i < numInputs; i++ {
		b.inputs = append(b.inputs, newInput(ctx.graph, id, i, ctx.config.QuantumSize, ctx.config.SampleRate))
	}
	for i, ch := range outputChannelCounts {
		b.outputs = append(b.outputs, newOutput(ctx.graph, id, i, ch, ctx.config.QuantumSize, ctx.config.SampleRate))
	}
	return b
}

// Register inserts a fully constructed node into the graph and gives it
// one normal (external strong) reference, mirroring macaudio's explicit
// create/destroy channel lifecycle rather than relying on GC finalizers
// for graph-visible teardown ordering.
func (ctx *Context) Register(n Node) {
	n.Base().normalRefCount++
	if err := n.Initialize(); err != nil {
		ctx.errorHandler.HandleError(err)
	}
	ctx.graph.registerNode(n)
}

// Release drops the caller's normal reference. Once both refcounts reach
// zero the node is marked for deletion and destroyed after the next
// quantum boundary (§3 Lifecycle).
func (ctx *Context) Release(n Node) {
	b := n.Base()
	if b.normalRefCount > 0 {
		b.normalRefCount--
	}
	ctx.graph.markForDeletionIfUnreferenced(n)
}

// HoldUntilFinished keeps a fire-and-forget scheduled source alive until
// its scheduler reaches schedule.Finished (§4.E auto-dispose).
func (ctx *Context) HoldUntilFinished(sched *schedule.Scheduler, n Node) {
	ctx.autoDispose.Hold(sched, n)
}

// Connect takes the Graph lock and wires src into dst, the ergonomic
// entry point for callers outside this package (the dspnode/cmd layers)
// that cannot take the context's unexported Graph lock themselves.
func (ctx *Context) Connect(dst *Input, src *Output) error {
	tok := ctx.graphLock.Lock()
	defer ctx.graphLock.Unlock(tok)
	return ctx.graph.Connect(tok, dst, src)
}

// Disconnect takes the Graph lock and removes the src->dst connection, if
// present.
func (ctx *Context) Disconnect(dst *Input, src *Output) {
	tok := ctx.graphLock.Lock()
	defer ctx.graphLock.Unlock(tok)
	ctx.graph.Disconnect(tok, dst, src)
}

// ConnectParam takes the Graph lock and wires src as a modulator of p.
func (ctx *Context) ConnectParam(p *param.Param, src *Output) {
	tok := ctx.graphLock.Lock()
	defer ctx.graphLock.Unlock(tok)
	ctx.graph.ConnectParam(tok, p, src)
}

// DisconnectParam takes the Graph lock and removes src as a modulator of p.
func (ctx *Context) DisconnectParam(p *param.Param, src *Output) {
	tok := ctx.graphLock.Lock()
	defer ctx.graphLock.Unlock(tok)
	ctx.graph.DisconnectParam(tok, p, src)
}

// AddAutomaticPullNode takes the Graph lock and registers n to render
// every quantum even when no consumer connects to it (analyser/recorder
// taps with no downstream consumer).
func (ctx *Context) AddAutomaticPullNode(n Node) {
	tok := ctx.graphLock.Lock()
	defer ctx.graphLock.Unlock(tok)
	ctx.graph.AddAutomaticPullNode(tok, n)
}
