package audiograph

import (
	"sync"

	"github.com/gosignal/audiograph/bus"
	"github.com/gosignal/audiograph/lock"
	"github.com/gosignal/audiograph/param"
)

// portKey identifies one output port by owning node and index. Used as the
// map key for connection sets so Input/Output never hold a pointer to
// another node directly.
type portKey struct {
	node  NodeID
	index int
}

// Input is a summing junction belonging to a node (§3, §4.C).
type Input struct {
	graph   *Graph
	owner   NodeID
	index   int

	mu                sync.Mutex
	liveConnections   map[portKey]struct{} // mutated only under the Graph lock
	renderConnections []portKey            // mutated only during pre-render flush
	dirty             bool

	internalBus *bus.Bus
}

func newInput(g *Graph, owner NodeID, index int, frames int, sampleRate float64) *Input {
	return &Input{
		graph:           g,
		owner:           owner,
		index:           index,
		liveConnections: make(map[portKey]struct{}),
		internalBus:     bus.New(1, frames, sampleRate),
	}
}

// connect adds src to the live connection set. Idempotent. Must be called
// with the Graph lock held.
func (in *Input) connect(_ lock.GraphToken, src *Output) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	key := portKey{node: src.owner, index: src.index}
	if _, ok := in.liveConnections[key]; ok {
		return false
	}
	in.liveConnections[key] = struct{}{}
	in.dirty = true
	return true
}

// disconnect removes src from the live connection set. No-op if absent.
func (in *Input) disconnect(_ lock.GraphToken, src *Output) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	key := portKey{node: src.owner, index: src.index}
	if _, ok := in.liveConnections[key]; !ok {
		return false
	}
	delete(in.liveConnections, key)
	in.dirty = true
	return true
}

// isConnected reports whether src is currently (live-set) connected.
func (in *Input) isConnected(src *Output) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	_, ok := in.liveConnections[portKey{node: src.owner, index: src.index}]
	return ok
}

// flush copies the live connection set into the rendering snapshot (§4.A
// pre-render task 1). Called only while holding the Render lock.
func (in *Input) flush() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.dirty {
		return false
	}
	in.renderConnections = in.renderConnections[:0]
	for k := range in.liveConnections {
		in.renderConnections = append(in.renderConnections, k)
	}
	in.dirty = false
	return true
}

// NumberOfChannels returns this input's current summing-bus channel
// count, for a node's CheckNumberOfChannelsForInput to read when
// resizing its own outputs to match (§4.B "nodes that preserve channel
// count... resize their outputs to match the input").
func (in *Input) NumberOfChannels() int {
	return in.internalBus.NumberOfChannels()
}

// numberOfRenderingChannels resolves each rendering connection's current
// output channel count, skipping connections whose upstream node has been
// destroyed (the weak-reference scheme from §4.C: a severed-and-destroyed
// output is treated as silent, not dereferenced).
func (in *Input) numberOfRenderingChannels() []int {
	counts := make([]int, 0, len(in.renderConnections))
	for _, k := range in.renderConnections {
		out := in.graph.resolveOutput(k)
		if out == nil {
			continue
		}
		counts = append(counts, out.channelCount)
	}
	return counts
}

// pull implements the summing-junction render (§4.C): if exactly one live
// rendering connection exists and channel counts match, its bus is
// returned directly (zero-copy); otherwise every connection is summed into
// the internal bus.
func (in *Input) pull(rc *RenderContext, frames int) *bus.Bus {
	mode := Max
	ownerChannelCount := 0
	if n := in.graph.node(in.owner); n != nil {
		mode = n.Base().ChannelCountMode()
		ownerChannelCount = n.Base().ChannelCount()
	}
	desired := bus.DesiredChannelCount(in.numberOfRenderingChannels(), bus.ChannelCountMode(mode), ownerChannelCount)
	if in.internalBus.NumberOfChannels() != desired {
		in.internalBus = bus.New(desired, frames, in.internalBus.SampleRate)
		if n := in.graph.node(in.owner); n != nil {
			n.CheckNumberOfChannelsForInput(rc, in)
		}
	} else {
		in.internalBus.Resize(frames)
	}

	live := make([]*Output, 0, len(in.renderConnections))
	for _, k := range in.renderConnections {
		if out := in.graph.resolveOutput(k); out != nil {
			live = append(live, out)
		}
	}

	if len(live) == 0 {
		in.internalBus.Zero()
		return in.internalBus
	}

	if len(live) == 1 && live[0].channelCount == desired {
		return live[0].pull(rc, frames, in.internalBus)
	}

	in.internalBus.Zero()
	for _, out := range live {
		srcBus := out.pull(rc, frames, nil)
		bus.SumInto(in.internalBus, srcBus, in.graph.nodeInterpretation(in.owner))
	}
	return in.internalBus
}

// ChannelCountMode mirrors bus.ChannelCountMode for use at the root
// package level without an extra import at call sites.
type ChannelCountMode = bus.ChannelCountMode

const (
	Max        = bus.Max
	ClampedMax = bus.ClampedMax
	Explicit   = bus.Explicit
)

// Output belongs to a node and fans out to any number of consumer inputs
// and parameters (§3).
type Output struct {
	graph *Graph
	owner NodeID
	index int

	channelCount        int
	desiredChannelCount int

	mu             sync.Mutex
	consumerInputs map[*Input]struct{}
	consumerParams map[*param.Param]struct{}
	fanOutSnapshot int

	internalBus *bus.Bus
}

func newOutput(g *Graph, owner NodeID, index, channelCount int, frames int, sampleRate float64) *Output {
	return &Output{
		graph:          g,
		owner:          owner,
		index:          index,
		channelCount:   channelCount,
		consumerInputs: make(map[*Input]struct{}),
		consumerParams: make(map[*param.Param]struct{}),
		internalBus:    bus.New(channelCount, frames, sampleRate),
	}
}

func (o *Output) NumberOfChannels() int { return o.channelCount }

// Bus returns this output's internal bus, for node kinds (dspnode
// package) to write their processed samples into during Process.
func (o *Output) Bus() *bus.Bus { return o.internalBus }

// SetDesiredChannelCount records a deferred channel-count change (§3
// Output). The render path does not apply the recorded count:
// applyDesiredChannelCount has no caller, so the output keeps its current
// channel count.
func (o *Output) SetDesiredChannelCount(n int) { o.desiredChannelCount = n }

// ResizeChannels immediately changes this output's channel count and
// reallocates its internal bus, for channel-preserving node kinds (gain,
// biquad, delay, waveshaper, ADSR, clip, PWM, peakcomp, recorder) to call
// from CheckNumberOfChannelsForInput when their single input's channel
// count changes (§4.B); ChannelMerger and SampledAudioNode also call it
// from Process. Downstream consumers pick up the new count on their
// next pull, since Input.pull recomputes its desired channel count from
// Output.channelCount every quantum rather than caching it.
func (o *Output) ResizeChannels(n int) {
	if n < 1 {
		n = 1
	}
	if n == o.channelCount {
		return
	}
	o.channelCount = n
	o.internalBus = bus.New(n, o.internalBus.Frames, o.internalBus.SampleRate)
}

func (o *Output) applyDesiredChannelCount(frames int) bool {
	if o.desiredChannelCount == 0 || o.desiredChannelCount == o.channelCount {
		return false
	}
	o.channelCount = o.desiredChannelCount
	o.internalBus = bus.New(o.channelCount, frames, o.internalBus.SampleRate)
	return true
}

// pull triggers the owning node's memoized processIfNecessary, then
// returns this output's bus. If inPlaceBus is non-nil and this output has
// fan-out of 1 with matching channel counts, the owning node is permitted
// to have rendered directly into inPlaceBus (§4.B in-place optimization);
// callers that pass inPlaceBus must not assume the return value differs
// from it.
func (o *Output) pull(rc *RenderContext, frames int, inPlaceBus *bus.Bus) *bus.Bus {
	n := o.graph.node(o.owner)
	if n == nil {
		return nil
	}
	o.internalBus.Resize(frames)
	if inPlaceBus != nil && o.fanOut() != 1 {
		inPlaceBus = nil
	}
	rc.inPlaceHint = inPlaceBus
	processIfNecessary(n, rc, frames)
	rc.inPlaceHint = nil
	return o.internalBus
}

// PullModulator satisfies param.ModulatorSource: a parameter connected
// directly to this output (§4.A connectParam) pulls it once per quantum,
// summing its first-channel samples into the parameter's a-rate buffer.
func (o *Output) PullModulator(frames int) *bus.Bus {
	if o.graph.currentRC == nil {
		return nil
	}
	return o.pull(o.graph.currentRC, frames, nil)
}

// connectParam/disconnectParam track which parameters this output feeds,
// purely for fan-out bookkeeping and teardown; the actual sample flow is
// driven by Param.RenderARate calling PullModulator.
func (o *Output) connectParam(p *param.Param) {
	o.mu.Lock()
	o.consumerParams[p] = struct{}{}
	o.mu.Unlock()
}

func (o *Output) disconnectParam(p *param.Param) {
	o.mu.Lock()
	delete(o.consumerParams, p)
	o.mu.Unlock()
}

func (o *Output) addConsumerInput(in *Input) {
	o.mu.Lock()
	o.consumerInputs[in] = struct{}{}
	o.mu.Unlock()
}

func (o *Output) removeConsumerInput(in *Input) {
	o.mu.Lock()
	delete(o.consumerInputs, in)
	o.mu.Unlock()
}

// fanOut returns the number of live consumer inputs; Output.pull drops the
// in-place hint unless it is exactly 1.
func (o *Output) fanOut() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.consumerInputs)
}
