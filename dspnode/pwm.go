package dspnode

import (
	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/bus"
)

// PWM implements a comparison-based pulse-width modulator (§4.B PWM): 1
// input, 1 output, preserves channel count. Input channel 0 is the
// carrier and channel 1, when present, is the modulator; the comparator
// output replaces channel 0 and is mirrored to any further channels. With
// no modulator channel the node is a pass-through, matching the original
// "expects two inputs... if there is no modulator, the node is a
// pass-through" contract collapsed onto a single multi-channel input.
type PWM struct {
	*audiograph.BaseNode
}

// NewPWM constructs a PWM node.
func NewPWM(ctx *audiograph.Context) *PWM {
	b := ctx.NewBaseNode("PWM", 1, []int{2})
	n := &PWM{BaseNode: b}
	ctx.Register(n)
	return n
}

func (n *PWM) Process(rc *audiograph.RenderContext, frames int, inputs []*bus.Bus) {
	out := n.Outputs()[0].Bus()
	out.Resize(frames)
	in := inputs[0]
	if in == nil || in.Silent {
		out.Zero()
		return
	}

	if in.NumberOfChannels() < 2 {
		out.CopyFrom(in)
		out.Silent = false
		return
	}

	carrier, mod := in.Channel(0), in.Channel(1)
	pulse := out.Channel(0)
	for i := 0; i < frames; i++ {
		if carrier[i] > mod[i] {
			pulse[i] = 1
		} else {
			pulse[i] = -1
		}
	}
	for c := 1; c < in.NumberOfChannels(); c++ {
		copy(out.Channel(c), pulse)
	}
	out.Silent = false
}

func (n *PWM) CheckNumberOfChannelsForInput(rc *audiograph.RenderContext, in *audiograph.Input) {
	resizeOutputToInput(n.BaseNode, in)
}
