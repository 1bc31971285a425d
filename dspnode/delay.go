package dspnode

import (
	"math"

	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/bus"
	"github.com/gosignal/audiograph/param"
)

// Delay linearly interpolates a fractional delay line (§4.G Delay): 1
// input, 1 output, preserves channel count. Setting maxDelaySeconds fixes
// the ring buffer length; parameter delayTime is clamped to
// [0, maxDelaySeconds] and may be a-rate. tailTime equals maxDelaySeconds.
type Delay struct {
	*audiograph.BaseNode
	MaxDelaySeconds *param.Setting
	DelayTime       *param.Param

	sampleRate float64
	ringLen    int
	rings      [][]float32
	writePos   int

	dtBuf scratch
}

// NewDelay constructs a Delay node with the given maximum delay length.
// The delay rings are (re)allocated inside Process, on the first quantum
// after the input's channel count changes; in steady state Process
// allocates nothing, so that reallocation is the one exception to §4.F's
// no-allocation-in-Process rule for this node.
func NewDelay(ctx *audiograph.Context, maxDelaySeconds float64) *Delay {
	b := ctx.NewBaseNode("delay", 1, []int{2})
	n := &Delay{
		BaseNode:        b,
		MaxDelaySeconds: param.NewSetting("maxDelaySeconds", param.SettingFloat, maxDelaySeconds),
		DelayTime:       param.NewParam("delayTime", 0, 0, maxDelaySeconds),
		sampleRate:      ctx.SampleRate(),
		ringLen:         int(math.Ceil(maxDelaySeconds*ctx.SampleRate())) + 2,
		dtBuf:           newScratch(ctx.QuantumSize()),
	}
	n.SetTailTime(maxDelaySeconds)
	n.ensureRings(2)
	ctx.Register(n)
	return n
}

func (n *Delay) ensureRings(channels int) {
	if len(n.rings) == channels {
		return
	}
	n.rings = make([][]float32, channels)
	for i := range n.rings {
		n.rings[i] = make([]float32, n.ringLen)
	}
	n.writePos = 0
}

func (n *Delay) Reset(rc *audiograph.RenderContext) {
	for _, r := range n.rings {
		for i := range r {
			r[i] = 0
		}
	}
	n.writePos = 0
}

func (n *Delay) Process(rc *audiograph.RenderContext, frames int, inputs []*bus.Bus) {
	out := n.Outputs()[0].Bus()
	out.Resize(frames)
	in := inputs[0]
	if in == nil || in.Silent {
		out.Zero()
		return
	}
	n.ensureRings(in.NumberOfChannels())

	aRate := n.DelayTime.IsARate()
	var dtBuf []float32
	var dtConst float32
	if aRate {
		dtBuf = n.dtBuf.get(frames)
		n.DelayTime.RenderARate(rc.Now, dtBuf, rc.SampleRate)
	} else {
		dtConst = float32(n.DelayTime.RenderKRate(rc.Now, rc.SampleRate))
	}

	wp0 := n.writePos
	for c := 0; c < in.NumberOfChannels() && c < len(n.rings); c++ {
		src, dst := in.Channel(c), out.Channel(c)
		ring := n.rings[c]
		wp := wp0
		for i := 0; i < frames; i++ {
			dt := dtConst
			if aRate {
				dt = dtBuf[i]
			}
			delaySamples := float64(dt) * rc.SampleRate

			ring[(wp+i)%n.ringLen] = src[i]

			readPos := float64((wp+i)%n.ringLen) - delaySamples
			for readPos < 0 {
				readPos += float64(n.ringLen)
			}
			i0 := int(readPos) % n.ringLen
			frac := float32(readPos - math.Floor(readPos))
			i1 := (i0 + 1) % n.ringLen
			dst[i] = ring[i0]*(1-frac) + ring[i1]*frac
		}
	}
	n.writePos = (wp0 + frames) % n.ringLen
	out.Silent = false
}

func (n *Delay) CheckNumberOfChannelsForInput(rc *audiograph.RenderContext, in *audiograph.Input) {
	resizeOutputToInput(n.BaseNode, in)
}
