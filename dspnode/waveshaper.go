package dspnode

import (
	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/bus"
	"github.com/gosignal/audiograph/param"
)

// WaveShaper applies a lookup-table nonlinearity (§4.G WaveShaper): 1
// input, 1 output, preserves channel count. Setting curve holds K sample
// points spanning [-1,1]; out-of-range inputs are clamped before lookup.
type WaveShaper struct {
	*audiograph.BaseNode
	Curve *param.Setting
}

// NewWaveShaper constructs a WaveShaper with the two-point curve {-1, 1}
// until SetCurve installs something else. With the nearest-point lookup
// that curve maps negative input to -1 and positive input to 1, a step
// rather than a pass-through.
func NewWaveShaper(ctx *audiograph.Context) *WaveShaper {
	b := ctx.NewBaseNode("waveshaper", 1, []int{2})
	identity := make([]float64, 2)
	identity[0], identity[1] = -1, 1
	n := &WaveShaper{
		BaseNode: b,
		Curve:    param.NewSetting("curve", param.SettingFloat, identity),
	}
	ctx.Register(n)
	return n
}

// SetCurve installs a new K-point curve.
func (n *WaveShaper) SetCurve(curve []float64) { n.Curve.Set(curve) }

func (n *WaveShaper) Process(rc *audiograph.RenderContext, frames int, inputs []*bus.Bus) {
	out := n.Outputs()[0].Bus()
	out.Resize(frames)
	in := inputs[0]
	if in == nil || in.Silent {
		out.Zero()
		return
	}
	curve, _ := n.Curve.Value().([]float64)
	if len(curve) < 2 {
		out.CopyFrom(in)
		return
	}
	k := len(curve)
	for c := 0; c < in.NumberOfChannels(); c++ {
		src, dst := in.Channel(c), out.Channel(c)
		for i := 0; i < frames; i++ {
			x := src[i]
			if x < -1 {
				x = -1
			} else if x > 1 {
				x = 1
			}
			idx := int((float64(x)+1)*float64(k-1)/2 + 0.5)
			if idx < 0 {
				idx = 0
			} else if idx >= k {
				idx = k - 1
			}
			dst[i] = float32(curve[idx])
		}
	}
	out.Silent = false
}

func (n *WaveShaper) CheckNumberOfChannelsForInput(rc *audiograph.RenderContext, in *audiograph.Input) {
	resizeOutputToInput(n.BaseNode, in)
}
