package dspnode

import (
	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/bus"
)

// ChannelMerger concatenates N mono (or multi-channel) inputs into one
// output, in input-index order (§4.G ChannelMerger): N inputs, 1 output.
// Unlike the generic single-input resize rule, its output size is the sum
// of every input's current channel count, recomputed whenever any input's
// channel count changes.
type ChannelMerger struct {
	*audiograph.BaseNode
}

// NewChannelMerger constructs a merger with the given number of inputs.
func NewChannelMerger(ctx *audiograph.Context, numberOfInputs int) *ChannelMerger {
	b := ctx.NewBaseNode("channelMerger", numberOfInputs, []int{numberOfInputs})
	n := &ChannelMerger{BaseNode: b}
	ctx.Register(n)
	return n
}

func (n *ChannelMerger) Process(rc *audiograph.RenderContext, frames int, inputs []*bus.Bus) {
	total := 0
	for _, in := range inputs {
		if in != nil {
			total += in.NumberOfChannels()
		}
	}
	out := n.Outputs()[0]
	out.ResizeChannels(total)
	ob := out.Bus()
	ob.Resize(frames)
	ob.Zero()

	dstCh := 0
	silent := true
	for _, in := range inputs {
		if in == nil {
			continue
		}
		for c := 0; c < in.NumberOfChannels(); c++ {
			copy(ob.Channel(dstCh), in.Channel(c))
			dstCh++
		}
		if !in.Silent {
			silent = false
		}
	}
	ob.Silent = silent
}

func (n *ChannelMerger) CheckNumberOfChannelsForInput(rc *audiograph.RenderContext, in *audiograph.Input) {
	total := 0
	for _, i := range n.Inputs() {
		total += i.NumberOfChannels()
	}
	n.Outputs()[0].ResizeChannels(total)
}
