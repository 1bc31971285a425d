package param

import "github.com/gosignal/audiograph/bus"

// ModulatorSource is implemented by the root package's Output type. It
// lets param sum audio-rate modulator connections into a parameter's value
// without param importing the graph/node package, keeping the dependency
// order F → A → C → D → B from spec.md §2 intact (param sits before node).
type ModulatorSource interface {
	PullModulator(frames int) *bus.Bus
}

// Param is a named automatable scalar (§3): a default/min/max, a timeline
// of events, and a set of connected audio-rate modulator outputs.
type Param struct {
	Name       string
	Default    float64
	Min, Max   float64
	timeline   Timeline
	modulators []ModulatorSource

	intrinsic float64 // last directly-set value, used by the de-zippering path
	smoothed  float64
	smoothSet bool
}

// NewParam constructs a Param at its default value.
func NewParam(name string, def, min, max float64) *Param {
	return &Param{Name: name, Default: def, Min: min, Max: max, intrinsic: def, smoothed: def, smoothSet: true}
}

// SetValueAtTime schedules a SetValue event, per §4.D.
func (p *Param) SetValueAtTime(value, time float64) error {
	return p.timeline.Insert(Event{Type: SetValue, Value: value, Time: time})
}

// LinearRampToValueAtTime schedules a LinearRamp event.
func (p *Param) LinearRampToValueAtTime(value, time float64) error {
	return p.timeline.Insert(Event{Type: LinearRamp, Value: value, Time: time})
}

// ExponentialRampToValueAtTime schedules an ExponentialRamp event.
func (p *Param) ExponentialRampToValueAtTime(value, time float64) error {
	return p.timeline.Insert(Event{Type: ExponentialRamp, Value: value, Time: time})
}

// SetTargetAtTime schedules a SetTarget event.
func (p *Param) SetTargetAtTime(target, time, timeConstant float64) error {
	return p.timeline.Insert(Event{Type: SetTarget, Value: target, Time: time, TimeConstant: timeConstant})
}

// SetValueCurveAtTime schedules a SetValueCurve event.
func (p *Param) SetValueCurveAtTime(curve []float64, time, duration float64) error {
	return p.timeline.Insert(Event{Type: SetValueCurve, Curve: curve, Time: time, Duration: duration})
}

// CancelScheduledValues clears the automation timeline, reverting to
// direct-set/de-zippered behavior.
func (p *Param) CancelScheduledValues() { p.timeline.Clear() }

// SetValue performs an immediate direct set, clamped to [Min, Max] — range
// is advisory for automation but strict for direct sets (§7).
func (p *Param) SetValue(v float64) {
	if v < p.Min {
		v = p.Min
	}
	if v > p.Max {
		v = p.Max
	}
	p.intrinsic = v
}

// ConnectModulator wires an audio-rate modulator output into this
// parameter (§4.A connectParam).
func (p *Param) ConnectModulator(src ModulatorSource) {
	p.modulators = append(p.modulators, src)
}

// DisconnectModulator removes a previously connected modulator, if present.
func (p *Param) DisconnectModulator(src ModulatorSource) {
	for i, m := range p.modulators {
		if m == src {
			p.modulators = append(p.modulators[:i], p.modulators[i+1:]...)
			return
		}
	}
}

// IsARate reports whether this parameter must be evaluated per-sample this
// quantum: true iff the timeline has events or modulators are connected
// (§4.D "Rate").
func (p *Param) IsARate() bool {
	return p.timeline.HasEvents() || len(p.modulators) > 0
}

const dezipperAlpha = 0.05
const dezipperSnapEpsilon = 1e-5

// RenderKRate computes a single value for the whole quantum: either the
// timeline's current value (if it has events, evaluated at quantumStart),
// or the de-zippered approach toward the intrinsic value.
func (p *Param) RenderKRate(quantumStart float64, sampleRate float64) float64 {
	if p.timeline.HasEvents() {
		var one [1]float32
		p.timeline.ValuesForTimeRange(quantumStart, p.Default, one[:], sampleRate)
		p.smoothed = float64(one[0])
		p.smoothSet = true
		return p.smoothed
	}
	return p.dezipper(p.intrinsic)
}

// RenderARate fills buf with this parameter's per-sample value across the
// quantum: timeline contribution plus the sum of connected modulators'
// samples (§4.D "Final parameter value").
func (p *Param) RenderARate(quantumStart float64, buf []float32, sampleRate float64) {
	if p.timeline.HasEvents() {
		p.timeline.ValuesForTimeRange(quantumStart, p.Default, buf, sampleRate)
		if n := len(buf); n > 0 {
			p.smoothed = float64(buf[n-1])
			p.smoothSet = true
		}
	} else if len(p.modulators) > 0 {
		p.smoothed, p.smoothSet = p.intrinsic, true
		for i := range buf {
			buf[i] = float32(p.intrinsic)
		}
	} else {
		for i := range buf {
			buf[i] = float32(p.dezipper(p.intrinsic))
		}
	}
	for _, m := range p.modulators {
		modBus := m.PullModulator(len(buf))
		if modBus == nil || modBus.Silent {
			continue
		}
		ch := modBus.Channel(0)
		n := len(buf)
		if len(ch) < n {
			n = len(ch)
		}
		for i := 0; i < n; i++ {
			buf[i] += ch[i]
		}
	}
}

// dezipper one-pole smooths toward target, snapping once the gap is
// negligible (§4.D, §GLOSSARY "De-zippering").
func (p *Param) dezipper(target float64) float64 {
	if !p.smoothSet {
		p.smoothed = target
		p.smoothSet = true
		return p.smoothed
	}
	p.smoothed += (target - p.smoothed) * dezipperAlpha
	if diff := target - p.smoothed; diff < dezipperSnapEpsilon && diff > -dezipperSnapEpsilon {
		p.smoothed = target
	}
	return p.smoothed
}
