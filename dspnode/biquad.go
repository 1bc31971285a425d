package dspnode

import (
	"math"

	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/bus"
	"github.com/gosignal/audiograph/param"
)

// BiquadType selects the filter topology (§4.G BiquadFilter, §6 exhaustive
// parameter/setting enumeration).
type BiquadType int

const (
	LPF BiquadType = iota
	HPF
	BPF
	LowShelf
	HighShelf
	Peak
	Notch
	AllPass
)

// biquadState holds the two-sample history for one channel's direct-form-I
// recursion.
type biquadState struct {
	x1, x2, y1, y2 float32
}

// BiquadFilter is a direct-form-I second-order IIR filter (§4.G
// BiquadFilter): 1 input, 1 output, preserves channel count. Coefficients
// are the standard RBJ Audio-EQ-Cookbook formulas, recomputed once per
// render quantum from the k-rate value of each parameter — matching how
// real-time biquad implementations in the pack's domain amortize
// coefficient recomputation rather than doing it per sample.
type BiquadFilter struct {
	*audiograph.BaseNode
	Type      *param.Setting
	Frequency *param.Param
	Q         *param.Param
	GainDB    *param.Param
	Detune    *param.Param

	states []biquadState
	b0, b1, b2, a1, a2 float32
}

// NewBiquadFilter constructs a BiquadFilter defaulting to LPF at 350Hz,
// matching the §6 exhaustive Biquad enumeration exactly.
func NewBiquadFilter(ctx *audiograph.Context) *BiquadFilter {
	b := ctx.NewBaseNode("biquad", 1, []int{2})
	n := &BiquadFilter{
		BaseNode:  b,
		Type:      param.NewSetting("type", param.SettingEnum, LPF),
		Frequency: param.NewParam("frequency", 350, 10, 22500),
		Q:         param.NewParam("Q", 1, 1e-4, 1000),
		GainDB:    param.NewParam("gain", 0, -40, 40),
		Detune:    param.NewParam("detune", 0, -4800, 4800),
		states:    make([]biquadState, 2),
	}
	ctx.Register(n)
	return n
}

func (n *BiquadFilter) Reset(rc *audiograph.RenderContext) {
	for i := range n.states {
		n.states[i] = biquadState{}
	}
}

func (n *BiquadFilter) recompute(now, sampleRate float64) {
	freq := n.Frequency.RenderKRate(now, sampleRate) * math.Pow(2, n.Detune.RenderKRate(now, sampleRate)/1200)
	freq = clampF(freq, 1, sampleRate/2-1)
	q := n.Q.RenderKRate(now, sampleRate)
	gainDB := n.GainDB.RenderKRate(now, sampleRate)

	w0 := 2 * math.Pi * freq / sampleRate
	sinw0, cosw0 := math.Sin(w0), math.Cos(w0)
	alpha := sinw0 / (2 * q)
	A := math.Pow(10, gainDB/40)

	var b0, b1, b2, a0, a1, a2 float64
	switch n.Type.Value().(BiquadType) {
	case HPF:
		b0 = (1 + cosw0) / 2
		b1 = -(1 + cosw0)
		b2 = (1 + cosw0) / 2
		a0, a1, a2 = 1+alpha, -2*cosw0, 1-alpha
	case BPF:
		b0, b1, b2 = alpha, 0, -alpha
		a0, a1, a2 = 1+alpha, -2*cosw0, 1-alpha
	case Notch:
		b0, b1, b2 = 1, -2*cosw0, 1
		a0, a1, a2 = 1+alpha, -2*cosw0, 1-alpha
	case AllPass:
		b0, b1, b2 = 1-alpha, -2*cosw0, 1+alpha
		a0, a1, a2 = 1+alpha, -2*cosw0, 1-alpha
	case Peak:
		b0 = 1 + alpha*A
		b1 = -2 * cosw0
		b2 = 1 - alpha*A
		a0 = 1 + alpha/A
		a1 = -2 * cosw0
		a2 = 1 - alpha/A
	case LowShelf:
		sq := math.Sqrt(A)
		b0 = A * ((A + 1) - (A-1)*cosw0 + 2*sq*alpha)
		b1 = 2 * A * ((A - 1) - (A+1)*cosw0)
		b2 = A * ((A + 1) - (A-1)*cosw0 - 2*sq*alpha)
		a0 = (A + 1) + (A-1)*cosw0 + 2*sq*alpha
		a1 = -2 * ((A - 1) + (A+1)*cosw0)
		a2 = (A + 1) + (A-1)*cosw0 - 2*sq*alpha
	case HighShelf:
		sq := math.Sqrt(A)
		b0 = A * ((A + 1) + (A-1)*cosw0 + 2*sq*alpha)
		b1 = -2 * A * ((A - 1) + (A+1)*cosw0)
		b2 = A * ((A + 1) + (A-1)*cosw0 - 2*sq*alpha)
		a0 = (A + 1) - (A-1)*cosw0 + 2*sq*alpha
		a1 = 2 * ((A - 1) - (A+1)*cosw0)
		a2 = (A + 1) - (A-1)*cosw0 - 2*sq*alpha
	default: // LPF
		b0 = (1 - cosw0) / 2
		b1 = 1 - cosw0
		b2 = (1 - cosw0) / 2
		a0, a1, a2 = 1+alpha, -2*cosw0, 1-alpha
	}

	n.b0, n.b1, n.b2 = float32(b0/a0), float32(b1/a0), float32(b2/a0)
	n.a1, n.a2 = float32(a1/a0), float32(a2/a0)
}

func (n *BiquadFilter) Process(rc *audiograph.RenderContext, frames int, inputs []*bus.Bus) {
	out := n.Outputs()[0].Bus()
	out.Resize(frames)
	in := inputs[0]
	if in == nil || in.Silent {
		out.Zero()
		return
	}
	n.recompute(rc.Now, rc.SampleRate)

	for len(n.states) < in.NumberOfChannels() {
		n.states = append(n.states, biquadState{})
	}

	b0, b1, b2, a1, a2 := n.b0, n.b1, n.b2, n.a1, n.a2
	for c := 0; c < in.NumberOfChannels(); c++ {
		src, dst := in.Channel(c), out.Channel(c)
		st := &n.states[c]
		x1, x2, y1, y2 := st.x1, st.x2, st.y1, st.y2
		for i := 0; i < frames; i++ {
			x0 := src[i]
			y0 := b0*x0 + b1*x1 + b2*x2 - a1*y1 - a2*y2
			dst[i] = y0
			x2, x1 = x1, x0
			y2, y1 = y1, y0
		}
		st.x1, st.x2, st.y1, st.y2 = x1, x2, y1, y2
	}
	out.Silent = false
}

func (n *BiquadFilter) CheckNumberOfChannelsForInput(rc *audiograph.RenderContext, in *audiograph.Input) {
	resizeOutputToInput(n.BaseNode, in)
}
