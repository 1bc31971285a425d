package dspnode

import (
	"math"

	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/bus"
	"github.com/gosignal/audiograph/param"
)

// PeakComp is a peak-envelope compressor with variable knee smoothing,
// attack, release and makeup gain (§4.B peakcomp): 1 input, 1 output,
// preserves channel count. The envelope is a single peak-sum across all
// input channels, generalizing the original two-channel L+R design to
// N channels; the per-sample gain reduction is then applied uniformly
// to every channel.
type PeakComp struct {
	*audiograph.BaseNode
	Threshold *param.Param
	Ratio     *param.Param
	AttackMs  *param.Param
	ReleaseMs *param.Param
	MakeupDB  *param.Param
	Knee      *param.Param

	sampleRate float64
	oneOverSR  float64

	releasePrev float64
	attackPrev  float64
	kneePrev    float64
}

// NewPeakComp constructs a PeakComp node with the defaults named in the
// header it is ported from: unity threshold, 1:1 ratio, hard knee.
func NewPeakComp(ctx *audiograph.Context) *PeakComp {
	b := ctx.NewBaseNode("peakcomp", 1, []int{2})
	n := &PeakComp{
		BaseNode:   b,
		Threshold:  param.NewParam("threshold", 0, -100, 0),
		Ratio:      param.NewParam("ratio", 1, 0, 10),
		AttackMs:   param.NewParam("attack", 0.001, 0, 1000),
		ReleaseMs:  param.NewParam("release", 0.001, 0, 1000),
		MakeupDB:   param.NewParam("makeup", 0, 0, 60),
		Knee:       param.NewParam("knee", 0, 0, 1),
		sampleRate: ctx.SampleRate(),
	}
	n.oneOverSR = 1.0 / n.sampleRate
	ctx.Register(n)
	return n
}

func (n *PeakComp) Process(rc *audiograph.RenderContext, frames int, inputs []*bus.Bus) {
	out := n.Outputs()[0].Bus()
	out.Resize(frames)
	in := inputs[0]
	if in == nil || in.Silent {
		out.Zero()
		return
	}

	thresholdDB := n.Threshold.RenderKRate(rc.Now, rc.SampleRate)
	var threshold float64
	if thresholdDB <= 0 {
		threshold = math.Pow(10, thresholdDB*0.05)
	}

	ratioParam := n.Ratio.RenderKRate(rc.Now, rc.SampleRate)
	ratio := 1.0
	if ratioParam >= 1 {
		ratio = 1 / ratioParam
	}

	attackParam := n.AttackMs.RenderKRate(rc.Now, rc.SampleRate)
	attack := 0.000001
	if attackParam >= 0.001 {
		attack = attackParam * 0.001
	}

	releaseParam := n.ReleaseMs.RenderKRate(rc.Now, rc.SampleRate)
	release := 0.000001
	if releaseParam >= 0.001 {
		release = releaseParam * 0.001
	}

	makeupGain := math.Pow(10, n.MakeupDB.RenderKRate(rc.Now, rc.SampleRate)*0.05)

	kneeParam := n.Knee.RenderKRate(rc.Now, rc.SampleRate)
	knee := kneeParam * 0.02

	kneeCoeff := math.Exp(-n.oneOverSR / knee)
	kneeCoeffMinus := 1 - kneeCoeff
	attackCoeff := math.Exp(-n.oneOverSR / attack)
	attackCoeffMinus := 1 - attackCoeff
	releaseCoeff := math.Exp(-n.oneOverSR / release)
	releaseCoeffMinus := 1 - releaseCoeff

	channels := in.NumberOfChannels()
	releasePrev, attackPrev, kneePrevV := n.releasePrev, n.attackPrev, n.kneePrev

	for i := 0; i < frames; i++ {
		var peakEnv float64
		for c := 0; c < channels; c++ {
			peakEnv += float64(in.Channel(c)[i])
		}

		releaseCur := releaseCoeffMinus*peakEnv + releaseCoeff*math.Max(peakEnv, releasePrev)
		attackCur := attackCoeffMinus*releaseCur + attackCoeff*attackPrev
		gainReduction := clampF((threshold+ratio*(attackCur-threshold))/attackCur, 0, 1)
		kneeCur := kneeCoeffMinus*gainReduction + kneeCoeff*kneePrevV

		g := float32(kneeCur * makeupGain)
		for c := 0; c < channels; c++ {
			out.Channel(c)[i] = in.Channel(c)[i] * g
		}

		releasePrev, attackPrev, kneePrevV = releaseCur, attackCur, kneeCur
	}

	n.releasePrev, n.attackPrev, n.kneePrev = releasePrev, attackPrev, kneePrevV
	out.Silent = false
}

func (n *PeakComp) CheckNumberOfChannelsForInput(rc *audiograph.RenderContext, in *audiograph.Input) {
	resizeOutputToInput(n.BaseNode, in)
}
