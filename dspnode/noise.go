package dspnode

import (
	"math/rand"

	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/bus"
	"github.com/gosignal/audiograph/param"
	"github.com/gosignal/audiograph/schedule"
)

// NoiseType selects a Noise node's spectral shape (§4.G Noise).
type NoiseType int

const (
	White NoiseType = iota
	Pink
	Brown
)

// Noise is a random-signal source (§4.G Noise): 0 inputs, 1 mono output,
// source-scheduled.
type Noise struct {
	*audiograph.BaseNode
	Type      *param.Setting
	Scheduler *schedule.Scheduler

	rng *rand.Rand

	// pink noise state: Voss-McCartney with a fixed bank of octave
	// generators; one row is refreshed per sample, picked by a counter.
	pinkRows [pinkRowCount]float32
	pinkSum  float32
	pinkCnt  uint32

	brownState float32
}

const pinkRowCount = 7

// NewNoise constructs a white-noise generator, unstarted.
func NewNoise(ctx *audiograph.Context) *Noise {
	b := ctx.NewBaseNode("noise", 0, []int{1})
	n := &Noise{
		BaseNode:  b,
		Type:      param.NewSetting("type", param.SettingEnum, White),
		Scheduler: schedule.NewScheduler(),
		rng:       rand.New(rand.NewSource(1)),
	}
	ctx.Register(n)
	return n
}

func (n *Noise) Start(ctx *audiograph.Context, when float64) {
	n.Scheduler.Start(when)
	ctx.HoldUntilFinished(n.Scheduler, n)
}

func (n *Noise) Stop(when float64) { n.Scheduler.Stop(when) }

func (n *Noise) PropagatesSilence(now float64) bool {
	st := n.Scheduler.State()
	return st == schedule.Unscheduled || st == schedule.Finished
}

// nextPink advances the Voss-McCartney generator by one sample: on each
// call exactly one row (chosen by counting trailing zero bits of an
// incrementing counter, so row k updates every 2^(k+1) samples and the
// last row every 64 samples) is replaced
// with a fresh random value, and the running sum of all rows is emitted,
// scaled down to roughly unit amplitude.
func (n *Noise) nextPink() float32 {
	n.pinkCnt++
	idx := 0
	c := n.pinkCnt
	for c&1 == 0 && idx < pinkRowCount-1 {
		c >>= 1
		idx++
	}
	n.pinkSum -= n.pinkRows[idx]
	v := float32(n.rng.Float64()*2 - 1)
	n.pinkRows[idx] = v
	n.pinkSum += v
	return n.pinkSum / pinkRowCount
}

func (n *Noise) nextBrown() float32 {
	white := float32(n.rng.Float64()*2 - 1)
	n.brownState += white * 0.02
	if n.brownState > 1 {
		n.brownState = 1
	} else if n.brownState < -1 {
		n.brownState = -1
	}
	return n.brownState * 3.5
}

func (n *Noise) Process(rc *audiograph.RenderContext, frames int, inputs []*bus.Bus) {
	out := n.Outputs()[0].Bus()
	out.Resize(frames)
	ch := out.Channel(0)

	offset, count := n.Scheduler.QuantumWindow(rc.Now, frames, rc.SampleRate)
	for i := 0; i < offset && i < frames; i++ {
		ch[i] = 0
	}
	if count == 0 {
		for i := offset; i < frames; i++ {
			ch[i] = 0
		}
		out.Silent = true
		if n.Scheduler.PastStopTime(rc.Now) {
			n.Scheduler.MarkFinished()
		}
		return
	}

	kind := n.Type.Value().(NoiseType)
	for i := offset; i < offset+count && i < frames; i++ {
		switch kind {
		case Pink:
			ch[i] = n.nextPink()
		case Brown:
			ch[i] = n.nextBrown()
		default:
			ch[i] = float32(n.rng.Float64()*2 - 1)
		}
	}
	for i := offset + count; i < frames; i++ {
		ch[i] = 0
	}
	out.Silent = false
}

func (n *Noise) CheckNumberOfChannelsForInput(rc *audiograph.RenderContext, in *audiograph.Input) {
}
