package dspnode

import (
	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/bus"
	"github.com/gosignal/audiograph/param"
)

// Gain multiplies every input sample by its gain parameter (§4.G Gain): 1
// input, 1 output, preserves channel count. When the parameter is a-rate
// (automation or modulator connections present) it applies per-sample
// multiplication; otherwise it uses the de-zippered k-rate value.
type Gain struct {
	*audiograph.BaseNode
	Gain *param.Param

	gainBuf scratch
}

// NewGain constructs a Gain node with gain defaulting to 1 (unity).
func NewGain(ctx *audiograph.Context) *Gain {
	b := ctx.NewBaseNode("gain", 1, []int{2})
	n := &Gain{
		BaseNode: b,
		Gain:     param.NewParam("gain", 1, 0, 1e6),
		gainBuf:  newScratch(ctx.QuantumSize()),
	}
	ctx.Register(n)
	return n
}

func (n *Gain) Process(rc *audiograph.RenderContext, frames int, inputs []*bus.Bus) {
	out := n.Outputs()[0].Bus()
	out.Resize(frames)
	in := inputs[0]
	if in == nil || in.Silent {
		out.Zero()
		return
	}

	if n.Gain.IsARate() {
		g := n.gainBuf.get(frames)
		n.Gain.RenderARate(rc.Now, g, rc.SampleRate)
		for c := 0; c < in.NumberOfChannels(); c++ {
			src, dst := in.Channel(c), out.Channel(c)
			for i := 0; i < frames; i++ {
				dst[i] = src[i] * g[i]
			}
		}
	} else {
		g := float32(n.Gain.RenderKRate(rc.Now, rc.SampleRate))
		for c := 0; c < in.NumberOfChannels(); c++ {
			src, dst := in.Channel(c), out.Channel(c)
			for i := 0; i < frames; i++ {
				dst[i] = src[i] * g
			}
		}
	}
	out.Silent = false
}

func (n *Gain) CheckNumberOfChannelsForInput(rc *audiograph.RenderContext, in *audiograph.Input) {
	resizeOutputToInput(n.BaseNode, in)
}
