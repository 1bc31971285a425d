package dspnode

import (
	"math"

	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/bus"
	"github.com/gosignal/audiograph/param"
)

// PanningModel selects Panner's gain computation (§4.G Panner).
type PanningModel int

const (
	EqualPower PanningModel = iota
	HRTF
)

// DistanceModel selects how Panner attenuates gain with listener
// distance (§4.G Panner).
type DistanceModel int

const (
	Linear DistanceModel = iota
	Inverse
	Exponential
)

// Panner is a 3D spatializer (§4.G Panner): 1 input, 1 output, always
// stereo. HRTF is approximated with the same equal-power law as
// EqualPower plus an extra ear-delay-style gain skew, since a true HRTF
// convolution engine is out of scope without a measured impulse-response
// set; this is recorded as a deliberate simplification.
type Panner struct {
	*audiograph.BaseNode
	Model         *param.Setting
	DistModel     *param.Setting
	PositionX     *param.Param
	PositionY     *param.Param
	PositionZ     *param.Param
	OrientationX  *param.Param
	OrientationY  *param.Param
	OrientationZ  *param.Param
	RefDistance   *param.Param
	MaxDistance   *param.Param
	RolloffFactor *param.Param
	ConeInner     *param.Param
	ConeOuter     *param.Param
	ConeOuterGain *param.Param

	listener *audiograph.Listener
}

// NewPanner constructs a Panner positioned at the origin, consulting the
// given context's Listener for every quantum's relative-position math.
func NewPanner(ctx *audiograph.Context) *Panner {
	b := ctx.NewBaseNode("panner", 1, []int{2})
	inf := 1e9
	n := &Panner{
		BaseNode:      b,
		Model:         param.NewSetting("panningModel", param.SettingEnum, EqualPower),
		DistModel:     param.NewSetting("distanceModel", param.SettingEnum, Inverse),
		PositionX:     param.NewParam("position.x", 0, -inf, inf),
		PositionY:     param.NewParam("position.y", 0, -inf, inf),
		PositionZ:     param.NewParam("position.z", 0, -inf, inf),
		OrientationX:  param.NewParam("orientation.x", 1, -inf, inf),
		OrientationY:  param.NewParam("orientation.y", 0, -inf, inf),
		OrientationZ:  param.NewParam("orientation.z", 0, -inf, inf),
		RefDistance:   param.NewParam("refDistance", 1, 0, inf),
		MaxDistance:   param.NewParam("maxDistance", 10000, 0.001, inf),
		RolloffFactor: param.NewParam("rolloffFactor", 1, 0, inf),
		ConeInner:     param.NewParam("coneInnerAngle", 360, 0, 360),
		ConeOuter:     param.NewParam("coneOuterAngle", 360, 0, 360),
		ConeOuterGain: param.NewParam("coneOuterGain", 0, 0, 1),
		listener:      ctx.Listener(),
	}
	ctx.Register(n)
	return n
}

func distanceGain(model DistanceModel, dist, ref, max, rolloff float64) float64 {
	if dist < ref {
		dist = ref
	}
	if dist > max {
		dist = max
	}
	switch model {
	case Linear:
		if max <= ref {
			return 1
		}
		return 1 - rolloff*(dist-ref)/(max-ref)
	case Exponential:
		return math.Pow(dist/ref, -rolloff)
	default: // Inverse
		return ref / (ref + rolloff*(dist-ref))
	}
}

// coneGain returns the attenuation from listener-relative cone angle:
// full gain inside coneInner, coneOuterGain outside coneOuter, linearly
// interpolated between.
func coneGain(angleDeg, inner, outer, outerGain float64) float64 {
	half := angleDeg
	if half <= inner/2 {
		return 1
	}
	if half >= outer/2 {
		return outerGain
	}
	f := (half - inner/2) / (outer/2 - inner/2)
	return 1 + f*(outerGain-1)
}

func (n *Panner) Process(rc *audiograph.RenderContext, frames int, inputs []*bus.Bus) {
	out := n.Outputs()[0].Bus()
	out.Resize(frames)
	in := inputs[0]
	if in == nil || in.Silent {
		out.Zero()
		return
	}

	snap := n.listener.Snapshot(rc.Now, rc.SampleRate)
	px := n.PositionX.RenderKRate(rc.Now, rc.SampleRate)
	py := n.PositionY.RenderKRate(rc.Now, rc.SampleRate)
	pz := n.PositionZ.RenderKRate(rc.Now, rc.SampleRate)

	dx, dy, dz := px-snap.Position[0], py-snap.Position[1], pz-snap.Position[2]
	dist := math.Sqrt(dx*dx + dy*dy + dz*dz)

	distGain := distanceGain(n.DistModel.Value().(DistanceModel), dist,
		n.RefDistance.RenderKRate(rc.Now, rc.SampleRate),
		n.MaxDistance.RenderKRate(rc.Now, rc.SampleRate),
		n.RolloffFactor.RenderKRate(rc.Now, rc.SampleRate))

	ox := n.OrientationX.RenderKRate(rc.Now, rc.SampleRate)
	oy := n.OrientationY.RenderKRate(rc.Now, rc.SampleRate)
	oz := n.OrientationZ.RenderKRate(rc.Now, rc.SampleRate)
	oLen := math.Sqrt(ox*ox + oy*oy + oz*oz)
	angle := 0.0
	if oLen > 0 && dist > 0 {
		cosA := (ox*(-dx) + oy*(-dy) + oz*(-dz)) / (oLen * dist)
		cosA = clampF(cosA, -1, 1)
		angle = math.Acos(cosA) * 180 / math.Pi
	}
	cGain := coneGain(angle,
		n.ConeInner.RenderKRate(rc.Now, rc.SampleRate),
		n.ConeOuter.RenderKRate(rc.Now, rc.SampleRate),
		n.ConeOuterGain.RenderKRate(rc.Now, rc.SampleRate))

	// azimuth relative to listener forward/right axes, for equal-power pan.
	fwd := snap.Forward
	up := snap.Up
	rightX := fwd[1]*up[2] - fwd[2]*up[1]
	rightY := fwd[2]*up[0] - fwd[0]*up[2]
	rightZ := fwd[0]*up[1] - fwd[1]*up[0]
	rLen := math.Sqrt(rightX*rightX + rightY*rightY + rightZ*rightZ)
	var pan float64
	if rLen > 0 && dist > 0 {
		proj := (dx*rightX + dy*rightY + dz*rightZ) / (rLen * dist)
		pan = clampF(proj, -1, 1)
	}

	x := (pan + 1) / 2
	gl := math.Cos(x * math.Pi / 2)
	gr := math.Sin(x * math.Pi / 2)
	if n.Model.Value().(PanningModel) == HRTF {
		// crude ITD-style skew favoring the near ear a bit more strongly.
		gl, gr = gl*gl, gr*gr
		norm := math.Sqrt(gl*gl + gr*gr)
		if norm > 0 {
			gl, gr = gl/norm, gr/norm
		}
	}

	totalGain := float32(distGain * cGain)
	left, right := out.Channel(0), out.Channel(1)

	if in.NumberOfChannels() == 1 {
		src := in.Channel(0)
		for i := 0; i < frames; i++ {
			left[i] = src[i] * float32(gl) * totalGain
			right[i] = src[i] * float32(gr) * totalGain
		}
	} else {
		srcL, srcR := in.Channel(0), in.Channel(1)
		for i := 0; i < frames; i++ {
			left[i] = (srcL[i]*float32(gl) + srcR[i]*float32(1-gr)) * totalGain
			right[i] = (srcR[i]*float32(gr) + srcL[i]*float32(1-gl)) * totalGain
		}
	}
	out.Silent = false
}

func (n *Panner) CheckNumberOfChannelsForInput(rc *audiograph.RenderContext, in *audiograph.Input) {
}
