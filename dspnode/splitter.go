package dspnode

import (
	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/bus"
)

// ChannelSplitter routes each input channel to its own mono output
// (§4.G ChannelSplitter): 1 input, N outputs, a fixed output shape that
// does not resize in response to CheckNumberOfChannelsForInput.
type ChannelSplitter struct {
	*audiograph.BaseNode
}

// NewChannelSplitter constructs a splitter with the given number of mono
// outputs, fixed at construction per §3 ("a fixed number of... outputs,
// created at construction").
func NewChannelSplitter(ctx *audiograph.Context, numberOfOutputs int) *ChannelSplitter {
	counts := make([]int, numberOfOutputs)
	for i := range counts {
		counts[i] = 1
	}
	b := ctx.NewBaseNode("channelSplitter", 1, counts)
	n := &ChannelSplitter{BaseNode: b}
	ctx.Register(n)
	return n
}

func (n *ChannelSplitter) Process(rc *audiograph.RenderContext, frames int, inputs []*bus.Bus) {
	in := inputs[0]
	outs := n.Outputs()
	for i, o := range outs {
		ob := o.Bus()
		ob.Resize(frames)
		if in == nil || in.Silent || i >= in.NumberOfChannels() {
			ob.Zero()
			continue
		}
		copy(ob.Channel(0), in.Channel(i))
		ob.Silent = false
	}
}

func (n *ChannelSplitter) CheckNumberOfChannelsForInput(rc *audiograph.RenderContext, in *audiograph.Input) {
}
