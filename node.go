package audiograph

import (
	"github.com/gosignal/audiograph/bus"
)

// NodeID identifies a node within a Graph's arena. Inputs and Outputs hold
// a NodeID plus an index rather than a pointer back to their owning Node
// (§9 "owner→child arena allocation: ... inputs/outputs hold a back-index
// rather than a back-pointer"); they resolve through the owning Graph.
type NodeID uint64

// Node is the uniform contract every processing unit satisfies (§4.B).
// Concrete node kinds (dspnode package) embed BaseNode and implement the
// kind-specific methods; BaseNode supplies ID/Base/TailTime/LatencyTime and
// a default Reset/Initialize/Uninitialize that a kind overrides only when
// it needs to allocate or release DSP resources.
type Node interface {
	ID() NodeID
	Base() *BaseNode
	// Process is handed the already-pulled bus for each input, in order,
	// and must produce frames samples on each of its own outputs
	// (reachable via Base().Outputs()).
	Process(rc *RenderContext, frames int, inputs []*bus.Bus)
	Reset(rc *RenderContext)
	Initialize() error
	Uninitialize()
	// CheckNumberOfChannelsForInput is invoked when an input's channel
	// count may have changed; the node may resize its outputs and/or
	// reinitialize its processor.
	CheckNumberOfChannelsForInput(rc *RenderContext, in *Input)
}

// BaseNode is the common state every node kind embeds (§3 Node).
type BaseNode struct {
	id    NodeID
	kind  string
	graph *Graph

	inputs  []*Input
	outputs []*Output

	channelCount          int
	channelCountMode      bus.ChannelCountMode
	channelInterpretation bus.Interpretation

	initialized       bool
	disabled          bool
	markedForDeletion bool

	lastProcessingTime float64
	lastNonSilentTime  float64
	tailTimeSeconds    float64
	latencyTimeSeconds float64

	normalRefCount     int32
	connectionRefCount int32
}

// Base returns the receiver itself; embedding BaseNode promotes this
// method so every concrete node kind satisfies Node.Base() automatically.
func (b *BaseNode) Base() *BaseNode { return b }

func (b *BaseNode) ID() NodeID     { return b.id }
func (b *BaseNode) Kind() string   { return b.kind }
func (b *BaseNode) Inputs() []*Input   { return b.inputs }
func (b *BaseNode) Outputs() []*Output { return b.outputs }

func (b *BaseNode) ChannelCount() int                          { return b.channelCount }
func (b *BaseNode) SetChannelCount(n int)                      { b.channelCount = n }
func (b *BaseNode) ChannelCountMode() bus.ChannelCountMode      { return b.channelCountMode }
func (b *BaseNode) SetChannelCountMode(m bus.ChannelCountMode)  { b.channelCountMode = m }
func (b *BaseNode) ChannelInterpretation() bus.Interpretation   { return b.channelInterpretation }
func (b *BaseNode) SetChannelInterpretation(i bus.Interpretation) {
	b.channelInterpretation = i
}

func (b *BaseNode) Disabled() bool          { return b.disabled }
func (b *BaseNode) SetDisabled(disabled bool) { b.disabled = disabled }

// TailTime returns seconds of non-silent output expected after input goes
// silent. Node kinds with a tail set it through SetTailTime (Delay sets its
// configured maxDelaySeconds, Convolver its impulse-response length).
func (b *BaseNode) TailTime() float64 { return b.tailTimeSeconds }

// LatencyTime returns seconds of processing delay introduced by this node.
func (b *BaseNode) LatencyTime() float64 { return b.latencyTimeSeconds }

func (b *BaseNode) SetTailTime(seconds float64)    { b.tailTimeSeconds = seconds }
func (b *BaseNode) SetLatencyTime(seconds float64) { b.latencyTimeSeconds = seconds }

// PropagatesSilence implements the default formula from §4.B: true iff
// now is past the point where any tail or latency could still be
// producing non-silent output. A node kind with data-dependent silence
// (SampledAudioNode: "propagatesSilence = not playing") defines its own
// method of the same name, which shadows this one via Go's normal
// embedding-resolution rules.
func (b *BaseNode) PropagatesSilence(now float64) bool {
	return now > b.lastNonSilentTime+b.tailTimeSeconds+b.latencyTimeSeconds
}

// Reset is the default no-op DSP-state reset; BiquadFilter and Delay
// define their own Reset to clear filter state and delay lines.
func (b *BaseNode) Reset(rc *RenderContext) {}

// Initialize/Uninitialize only flip a flag; no built-in node kind
// overrides them.
func (b *BaseNode) Initialize() error { b.initialized = true; return nil }
func (b *BaseNode) Uninitialize()     { b.initialized = false }

// processIfNecessary implements the pull protocol from §4.B exactly: a
// memoized, recursive pull that zeros outputs when every input is silent
// and this node propagates silence, otherwise delegates to Process.
func processIfNecessary(n Node, rc *RenderContext, frames int) {
	b := n.Base()
	if !b.initialized {
		return
	}
	if b.lastProcessingTime == rc.Now {
		return
	}
	b.lastProcessingTime = rc.Now

	allSilent := true
	pulled := make([]*bus.Bus, len(b.inputs))
	for i, in := range b.inputs {
		sb := in.pull(rc, frames)
		pulled[i] = sb
		if sb != nil && !sb.Silent {
			allSilent = false
		}
	}

	if allSilent && PropagatesSilenceChecked(n, rc.Now) {
		for _, out := range b.outputs {
			out.internalBus.Resize(frames)
			out.internalBus.Zero()
		}
		return
	}

	n.Process(rc, frames, pulled)
	b.lastNonSilentTime = rc.Now + float64(frames)/rc.SampleRate
}

// silencePropagator lets a node kind override PropagatesSilence while
// still embedding BaseNode; Node itself does not require this method so
// kinds that don't need custom silence behavior aren't forced to add it.
type silencePropagator interface {
	PropagatesSilence(now float64) bool
}

// PropagatesSilenceChecked dispatches to a node-kind override if present,
// else BaseNode's default formula.
func PropagatesSilenceChecked(n Node, now float64) bool {
	if sp, ok := n.(silencePropagator); ok {
		return sp.PropagatesSilence(now)
	}
	return n.Base().PropagatesSilence(now)
}
