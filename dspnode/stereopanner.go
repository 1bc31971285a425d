package dspnode

import (
	"math"

	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/bus"
	"github.com/gosignal/audiograph/param"
)

// StereoPanner is an equal-power stereo balance control (§4.G
// StereoPanner): 1 input (mono or stereo), 1 stereo output.
type StereoPanner struct {
	*audiograph.BaseNode
	Pan *param.Param
}

// NewStereoPanner constructs a centered StereoPanner.
func NewStereoPanner(ctx *audiograph.Context) *StereoPanner {
	b := ctx.NewBaseNode("stereoPanner", 1, []int{2})
	n := &StereoPanner{
		BaseNode: b,
		Pan:      param.NewParam("pan", 0, -1, 1),
	}
	ctx.Register(n)
	return n
}

func (n *StereoPanner) Process(rc *audiograph.RenderContext, frames int, inputs []*bus.Bus) {
	out := n.Outputs()[0].Bus()
	out.Resize(frames)
	in := inputs[0]
	if in == nil || in.Silent {
		out.Zero()
		return
	}

	pan := n.Pan.RenderKRate(rc.Now, rc.SampleRate)
	if pan < -1 {
		pan = -1
	} else if pan > 1 {
		pan = 1
	}

	left, right := out.Channel(0), out.Channel(1)

	if in.NumberOfChannels() == 1 {
		src := in.Channel(0)
		x := (pan + 1) / 2
		gl := float32(math.Cos(x * math.Pi / 2))
		gr := float32(math.Sin(x * math.Pi / 2))
		for i := 0; i < frames; i++ {
			left[i] = src[i] * gl
			right[i] = src[i] * gr
		}
		out.Silent = false
		return
	}

	srcL, srcR := in.Channel(0), in.Channel(1)
	var x float64
	if pan <= 0 {
		x = pan + 1
	} else {
		x = pan
	}
	gl := float32(math.Cos(x * math.Pi / 2))
	gr := float32(math.Sin(x * math.Pi / 2))
	for i := 0; i < frames; i++ {
		l, r := srcL[i], srcR[i]
		if pan <= 0 {
			left[i] = l + r*gl
			right[i] = r * gr
		} else {
			left[i] = l * gl
			right[i] = r + l*gr
		}
	}
	out.Silent = false
}

func (n *StereoPanner) CheckNumberOfChannelsForInput(rc *audiograph.RenderContext, in *audiograph.Input) {
}
