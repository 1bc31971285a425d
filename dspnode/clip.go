package dspnode

import (
	"math"

	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/bus"
	"github.com/gosignal/audiograph/param"
)

// ClipMode selects Clip's nonlinearity (§4.B clip).
type ClipMode int

const (
	ClipHard ClipMode = iota
	ClipTanh
)

// Clip applies either hard thresholding or a tanh waveshape (§4.B clip):
// 1 input, 1 output, preserves channel count. In ClipHard mode, A is the
// min value and B is the max value. In ClipTanh mode, A is the output
// gain and B is the input gain driving the distortion.
type Clip struct {
	*audiograph.BaseNode
	Mode *param.Setting
	A    *param.Param
	B    *param.Param
}

// NewClip constructs a Clip node in ClipHard mode with the default
// [-1, 1] thresholds.
func NewClip(ctx *audiograph.Context) *Clip {
	b := ctx.NewBaseNode("clip", 1, []int{2})
	n := &Clip{
		BaseNode: b,
		Mode:     param.NewSetting("mode", param.SettingEnum, ClipHard),
		A:        param.NewParam("a", -1, -math.MaxFloat32, math.MaxFloat32),
		B:        param.NewParam("b", 1, -math.MaxFloat32, math.MaxFloat32),
	}
	ctx.Register(n)
	return n
}

func (n *Clip) Process(rc *audiograph.RenderContext, frames int, inputs []*bus.Bus) {
	out := n.Outputs()[0].Bus()
	out.Resize(frames)
	in := inputs[0]
	if in == nil || in.Silent {
		out.Zero()
		return
	}

	a := n.A.RenderKRate(rc.Now, rc.SampleRate)
	bVal := n.B.RenderKRate(rc.Now, rc.SampleRate)

	if n.Mode.Value().(ClipMode) == ClipTanh {
		outGain, inGain := float32(a), float32(bVal)
		for c := 0; c < in.NumberOfChannels(); c++ {
			src, dst := in.Channel(c), out.Channel(c)
			for i := 0; i < frames; i++ {
				dst[i] = outGain * float32(math.Tanh(float64(inGain*src[i])))
			}
		}
	} else {
		minF, maxF := float32(a), float32(bVal)
		for c := 0; c < in.NumberOfChannels(); c++ {
			src, dst := in.Channel(c), out.Channel(c)
			for i := 0; i < frames; i++ {
				v := src[i]
				if v < minF {
					v = minF
				} else if v > maxF {
					v = maxF
				}
				dst[i] = v
			}
		}
	}
	out.Silent = false
}

func (n *Clip) CheckNumberOfChannelsForInput(rc *audiograph.RenderContext, in *audiograph.Input) {
	resizeOutputToInput(n.BaseNode, in)
}
