package dspnode

import (
	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/bus"
	"github.com/gosignal/audiograph/param"
)

// EnvelopePhase is ADSR's own five-state machine (§4.G ADSR), distinct
// from the generic four-state schedule.Scheduler used by the other
// source-capable nodes: a note can be retriggered (noteOn while already
// sounding) and can be released mid-decay, neither of which the generic
// Unscheduled/Scheduled/Playing/Finished machine models.
type EnvelopePhase int

const (
	PhaseOff EnvelopePhase = iota
	PhaseAttack
	PhaseDecay
	PhaseSustain
	PhaseRelease
)

// ADSR multiplies its input by an attack/decay/sustain/release gain
// envelope (§4.G ADSR): 1 input, 1 output, preserves channel count.
type ADSR struct {
	*audiograph.BaseNode
	AttackTime  *param.Param
	DecayTime   *param.Param
	SustainLvl  *param.Param
	ReleaseTime *param.Param

	phase          EnvelopePhase
	phaseStartAt   float64
	levelAtStart   float64
	pendingOn      bool
	pendingOnAt    float64
	pendingOff     bool
	pendingOffAt   float64
	curLevel       float64
}

// NewADSR constructs an ADSR node in the Off phase with a modest default
// envelope.
func NewADSR(ctx *audiograph.Context) *ADSR {
	b := ctx.NewBaseNode("adsr", 1, []int{2})
	n := &ADSR{
		BaseNode:    b,
		AttackTime:  param.NewParam("attackTime", 0.02, 0, 60),
		DecayTime:   param.NewParam("decayTime", 0.1, 0, 60),
		SustainLvl:  param.NewParam("sustainLevel", 0.7, 0, 1),
		ReleaseTime: param.NewParam("releaseTime", 0.3, 0, 60),
	}
	ctx.Register(n)
	return n
}

// NoteOn schedules the attack phase to begin at `when` seconds. A
// note-on while already sounding retriggers from the envelope's current
// level rather than snapping back to zero.
func (n *ADSR) NoteOn(when float64) {
	n.pendingOn, n.pendingOnAt = true, when
}

// NoteOff schedules the release phase to begin at `when` seconds.
func (n *ADSR) NoteOff(when float64) {
	n.pendingOff, n.pendingOffAt = true, when
}

// Finished reports whether the envelope has fully decayed to zero after
// release.
func (n *ADSR) Finished() bool { return n.phase == PhaseOff && n.curLevel == 0 && !n.pendingOn }

func (n *ADSR) enter(phase EnvelopePhase, at float64) {
	n.levelAtStart = n.curLevel
	n.phase = phase
	n.phaseStartAt = at
}

// valueAt computes the envelope's instantaneous level at absolute time t,
// given the phase durations read once per quantum (k-rate, matching
// BiquadFilter's per-quantum coefficient recompute).
func (n *ADSR) valueAt(t, attack, decay, sustain, release float64) float64 {
	elapsed := t - n.phaseStartAt
	switch n.phase {
	case PhaseAttack:
		if attack <= 0 || elapsed >= attack {
			return 1
		}
		return n.levelAtStart + (1-n.levelAtStart)*(elapsed/attack)
	case PhaseDecay:
		if decay <= 0 || elapsed >= decay {
			return sustain
		}
		return 1 + (sustain-1)*(elapsed/decay)
	case PhaseSustain:
		return sustain
	case PhaseRelease:
		if release <= 0 || elapsed >= release {
			return 0
		}
		return n.levelAtStart * (1 - elapsed/release)
	default:
		return 0
	}
}

func (n *ADSR) Process(rc *audiograph.RenderContext, frames int, inputs []*bus.Bus) {
	out := n.Outputs()[0].Bus()
	out.Resize(frames)
	in := inputs[0]
	if in == nil {
		out.Zero()
	} else {
		out.CopyFrom(in)
	}

	attack := n.AttackTime.RenderKRate(rc.Now, rc.SampleRate)
	decay := n.DecayTime.RenderKRate(rc.Now, rc.SampleRate)
	sustain := n.SustainLvl.RenderKRate(rc.Now, rc.SampleRate)
	release := n.ReleaseTime.RenderKRate(rc.Now, rc.SampleRate)

	nCh := out.NumberOfChannels()
	silent := in == nil || in.Silent

	for i := 0; i < frames; i++ {
		t := rc.Now + float64(i)/rc.SampleRate

		if n.pendingOn && n.pendingOnAt <= t {
			n.enter(PhaseAttack, t)
			n.pendingOn = false
		}
		if n.pendingOff && n.pendingOffAt <= t && n.phase != PhaseOff {
			n.enter(PhaseRelease, t)
			n.pendingOff = false
		}

		switch n.phase {
		case PhaseAttack:
			if t-n.phaseStartAt >= attack {
				n.enter(PhaseDecay, n.phaseStartAt+attack)
			}
		case PhaseDecay:
			if t-n.phaseStartAt >= decay {
				n.enter(PhaseSustain, n.phaseStartAt+decay)
			}
		case PhaseRelease:
			if t-n.phaseStartAt >= release {
				n.phase = PhaseOff
				n.curLevel = 0
			}
		}

		if n.phase != PhaseOff {
			n.curLevel = n.valueAt(t, attack, decay, sustain, release)
		}

		if n.curLevel != 0 {
			silent = false
		}
		gain := float32(n.curLevel)
		for c := 0; c < nCh; c++ {
			out.Channel(c)[i] *= gain
		}
	}
	out.Silent = silent
}

func (n *ADSR) CheckNumberOfChannelsForInput(rc *audiograph.RenderContext, in *audiograph.Input) {
	resizeOutputToInput(n.BaseNode, in)
}
