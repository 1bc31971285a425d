package dspnode

import (
	"github.com/cwbudde/algo-dsp/dsp/effects/dynamics"
	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/bus"
	"github.com/gosignal/audiograph/param"
)

// DynamicsCompressor wraps dynamics.Compressor per channel (§4.G
// DynamicsCompressor): 1 input, 1 output; the output is fixed at two
// channels and does not track the input's channel count.
type DynamicsCompressor struct {
	*audiograph.BaseNode
	Threshold *param.Param
	Ratio     *param.Param
	Knee      *param.Param
	AttackMs  *param.Param
	ReleaseMs *param.Param
	MakeupDB  *param.Param

	sampleRate float64
	channels   []*dynamics.Compressor
	scratch    []float64
}

// NewDynamicsCompressor constructs a compressor with the WebAudio-style
// default curve (threshold -24dB, ratio 12:1, 30dB knee).
func NewDynamicsCompressor(ctx *audiograph.Context) *DynamicsCompressor {
	b := ctx.NewBaseNode("dynamicsCompressor", 1, []int{2})
	n := &DynamicsCompressor{
		BaseNode:   b,
		Threshold:  param.NewParam("threshold", -24, -100, 0),
		Ratio:      param.NewParam("ratio", 12, 1, 20),
		Knee:       param.NewParam("knee", 30, 0, 40),
		AttackMs:   param.NewParam("attack", 3, 0, 1000),
		ReleaseMs:  param.NewParam("release", 250, 0, 5000),
		MakeupDB:   param.NewParam("makeupGain", 0, 0, 40),
		sampleRate: ctx.SampleRate(),
	}
	n.scratch = make([]float64, ctx.QuantumSize())
	ctx.Register(n)
	return n
}

func (n *DynamicsCompressor) ensureChannels(count int, errh audiograph.ErrorHandler) {
	for len(n.channels) < count {
		c, err := dynamics.NewCompressor(n.sampleRate)
		if err != nil {
			if errh != nil {
				errh.HandleError(audiograph.NewConditionError(audiograph.InvalidArgument, "dynamics.NewCompressor: %v", err))
			}
			return
		}
		n.channels = append(n.channels, c)
	}
}

func (n *DynamicsCompressor) configure(rc *audiograph.RenderContext) {
	thresh := n.Threshold.RenderKRate(rc.Now, rc.SampleRate)
	ratio := n.Ratio.RenderKRate(rc.Now, rc.SampleRate)
	knee := n.Knee.RenderKRate(rc.Now, rc.SampleRate)
	attack := n.AttackMs.RenderKRate(rc.Now, rc.SampleRate)
	release := n.ReleaseMs.RenderKRate(rc.Now, rc.SampleRate)
	makeup := n.MakeupDB.RenderKRate(rc.Now, rc.SampleRate)
	for _, c := range n.channels {
		_ = c.SetThreshold(thresh)
		_ = c.SetRatio(ratio)
		_ = c.SetKnee(knee)
		_ = c.SetAttack(attack)
		_ = c.SetRelease(release)
		_ = c.SetAutoMakeup(false)
		_ = c.SetMakeupGain(makeup)
	}
}

func (n *DynamicsCompressor) Process(rc *audiograph.RenderContext, frames int, inputs []*bus.Bus) {
	out := n.Outputs()[0].Bus()
	out.Resize(frames)
	in := inputs[0]
	if in == nil || in.Silent {
		out.Zero()
		return
	}

	n.ensureChannels(in.NumberOfChannels(), nil)
	n.configure(rc)

	if cap(n.scratch) < frames {
		n.scratch = make([]float64, frames)
	}
	scratch := n.scratch[:frames]

	for c := 0; c < in.NumberOfChannels() && c < len(n.channels); c++ {
		src, dst := in.Channel(c), out.Channel(c)
		for i := 0; i < frames; i++ {
			scratch[i] = float64(src[i])
		}
		n.channels[c].ProcessInPlace(scratch)
		for i := 0; i < frames; i++ {
			dst[i] = float32(scratch[i])
		}
	}
	out.Silent = false
}

func (n *DynamicsCompressor) CheckNumberOfChannelsForInput(rc *audiograph.RenderContext, in *audiograph.Input) {
}
