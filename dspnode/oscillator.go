package dspnode

import (
	"math"

	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/bus"
	"github.com/gosignal/audiograph/param"
	"github.com/gosignal/audiograph/schedule"
)

// WaveType selects an Oscillator's waveform (§4.G Oscillator).
type WaveType int

const (
	Sine WaveType = iota
	Square
	Sawtooth
	Triangle
	Custom
)

const oscTableSize = 4096
const oscHarmonics = 30

// buildWaveTable precomputes one cycle via band-limited Fourier synthesis
// (summed harmonics below the table's own Nyquist, the standard technique
// for anti-aliased wavetable generation) for every type except Sine and
// Custom.
func buildWaveTable(kind WaveType) [oscTableSize]float32 {
	var t [oscTableSize]float32
	if kind == Sine {
		for i := range t {
			t[i] = float32(math.Sin(2 * math.Pi * float64(i) / oscTableSize))
		}
		return t
	}
	for harm := 1; harm <= oscHarmonics; harm++ {
		var coeff float64
		switch kind {
		case Square:
			if harm%2 == 1 {
				coeff = 4 / (math.Pi * float64(harm))
			}
		case Sawtooth:
			sign := 1.0
			if harm%2 == 0 {
				sign = -1
			}
			coeff = sign * 2 / (math.Pi * float64(harm))
		case Triangle:
			if harm%2 == 1 {
				sign := 1.0
				if (harm/2)%2 == 1 {
					sign = -1
				}
				coeff = sign * 8 / (math.Pi * math.Pi * float64(harm*harm))
			}
		}
		if coeff == 0 {
			continue
		}
		for i := range t {
			t[i] += float32(coeff * math.Sin(2*math.Pi*float64(harm*i)/oscTableSize))
		}
	}
	return t
}

var waveTables = map[WaveType][oscTableSize]float32{
	Sine:     buildWaveTable(Sine),
	Square:   buildWaveTable(Square),
	Sawtooth: buildWaveTable(Sawtooth),
	Triangle: buildWaveTable(Triangle),
}

// Oscillator is a wavetable source (§4.G Oscillator): 0 inputs, 1 mono
// output, source-scheduled via Start/Stop.
type Oscillator struct {
	*audiograph.BaseNode
	Type      *param.Setting
	Frequency *param.Param
	Detune    *param.Param

	Scheduler   *schedule.Scheduler
	customTable []float32

	phase float64
}

// NewOscillator constructs a 440Hz sine oscillator, unstarted.
func NewOscillator(ctx *audiograph.Context) *Oscillator {
	b := ctx.NewBaseNode("oscillator", 0, []int{1})
	n := &Oscillator{
		BaseNode:  b,
		Type:      param.NewSetting("type", param.SettingEnum, Sine),
		Frequency: param.NewParam("frequency", 440, 0, 24000),
		Detune:    param.NewParam("detune", 0, -4800, 4800),
		Scheduler: schedule.NewScheduler(),
	}
	ctx.Register(n)
	return n
}

// SetCustomWave installs a custom single-cycle waveform used when Type is
// set to Custom.
func (n *Oscillator) SetCustomWave(samples []float32) { n.customTable = samples }

// Start schedules playback to begin at `when` seconds on the context
// clock, and holds this node alive until it finishes if the caller does
// not otherwise retain it (§4.E auto-dispose).
func (n *Oscillator) Start(ctx *audiograph.Context, when float64) {
	n.Scheduler.Start(when)
	ctx.HoldUntilFinished(n.Scheduler, n)
}

// Stop schedules playback to end at `when` seconds.
func (n *Oscillator) Stop(when float64) { n.Scheduler.Stop(when) }

// PropagatesSilence overrides BaseNode's input-driven default: a
// zero-input source's silence is a function of its own scheduler state,
// not of "all inputs silent" (which is vacuously true with no inputs).
func (n *Oscillator) PropagatesSilence(now float64) bool {
	st := n.Scheduler.State()
	return st == schedule.Unscheduled || st == schedule.Finished
}

func (n *Oscillator) table() []float32 {
	if n.Type.Value().(WaveType) == Custom && len(n.customTable) > 1 {
		return n.customTable
	}
	t := waveTables[n.Type.Value().(WaveType)]
	return t[:]
}

func (n *Oscillator) Process(rc *audiograph.RenderContext, frames int, inputs []*bus.Bus) {
	out := n.Outputs()[0].Bus()
	out.Resize(frames)
	offset, count := n.Scheduler.QuantumWindow(rc.Now, frames, rc.SampleRate)
	ch := out.Channel(0)
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

	table := n.table()
	tn := float64(len(table))
	freq := n.Frequency.RenderKRate(rc.Now, rc.SampleRate) * math.Pow(2, n.Detune.RenderKRate(rc.Now, rc.SampleRate)/1200)
	inc := freq * tn / rc.SampleRate

	for i := offset; i < offset+count && i < frames; i++ {
		idx := n.phase
		i0 := int(idx) % len(table)
		i1 := (i0 + 1) % len(table)
		frac := float32(idx - math.Floor(idx))
		ch[i] = table[i0]*(1-frac) + table[i1]*frac
		n.phase += inc
		for n.phase >= tn {
			n.phase -= tn
		}
	}
	for i := offset + count; i < frames; i++ {
		ch[i] = 0
	}
	out.Silent = false
}

func (n *Oscillator) CheckNumberOfChannelsForInput(rc *audiograph.RenderContext, in *audiograph.Input) {
}
