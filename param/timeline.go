package param

import (
	"math"
	"sort"
)

// Timeline is a sorted sequence of Events, mutated from the main thread.
// It has no lock of its own, and Param adds none around it.
type Timeline struct {
	events []Event
}

// Insert adds e to the timeline, enforcing the insertion rule (§4.D): same
// (type, time) overwrites; a SetValueCurve must not overlap any other
// event's time, and a non-curve event landing inside an existing curve's
// [time, time+duration) span is rejected.
func (tl *Timeline) Insert(e Event) error {
	if err := validate(e); err != nil {
		return err
	}
	for _, existing := range tl.events {
		if existing.Type == SetValueCurve && existing.Time != e.Time {
			if e.Time >= existing.Time && e.Time < existing.Time+existing.Duration {
				return ErrCurveOverlap
			}
		}
	}
	if e.Type == SetValueCurve {
		for _, existing := range tl.events {
			if existing.Time == e.Time {
				continue
			}
			if existing.Time >= e.Time && existing.Time < e.Time+e.Duration {
				return ErrCurveOverlap
			}
		}
	}

	for i := range tl.events {
		if tl.events[i].Time == e.Time && tl.events[i].Type == e.Type {
			tl.events[i] = e
			return nil
		}
	}
	tl.events = append(tl.events, e)
	sort.Slice(tl.events, func(i, j int) bool { return tl.events[i].Time < tl.events[j].Time })
	return nil
}

// HasEvents reports whether any automation events are scheduled.
func (tl *Timeline) HasEvents() bool { return len(tl.events) > 0 }

// Clear removes every event, used by cancelScheduledValues-style resets.
func (tl *Timeline) Clear() { tl.events = nil }

// ValuesForTimeRange fills buf with the timeline's value at each of the
// len(buf) sample times starting at start (seconds), spaced 1/sampleRate
// apart, per §4.D. defaultValue is used for any sample before the first
// event.
func (tl *Timeline) ValuesForTimeRange(start float64, defaultValue float64, buf []float32, sampleRate float64) {
	n := len(buf)
	if n == 0 {
		return
	}
	end := start + float64(n)/sampleRate
	sampleTime := func(i int) float64 { return start + float64(i)/sampleRate }

	if len(tl.events) == 0 {
		for i := range buf {
			buf[i] = float32(defaultValue)
		}
		return
	}

	fillRange := func(from, to float64, fn func(t float64) float64) {
		for i := 0; i < n; i++ {
			st := sampleTime(i)
			if st < from || st >= to {
				continue
			}
			buf[i] = float32(fn(st))
		}
	}

	// before first event
	first := tl.events[0]
	fillRange(math.Inf(-1), first.Time, func(float64) float64 { return defaultValue })

	prevValue := defaultValue
	prevTime := start
	for i, e := range tl.events {
		var next *Event
		if i+1 < len(tl.events) {
			next = &tl.events[i+1]
		}
		segEnd := end
		if next != nil {
			segEnd = next.Time
		}

		switch e.Type {
		case SetValue:
			v := e.Value
			fillRange(e.Time, segEnd, func(float64) float64 { return v })
			prevValue, prevTime = v, e.Time
		case SetTarget:
			target := e.Value
			tau := e.TimeConstant
			v0 := prevValue
			t0 := e.Time
			fillRange(e.Time, segEnd, func(t float64) float64 {
				if tau <= 0 {
					return target
				}
				dt := t - t0
				return target + (v0-target)*math.Exp(-dt/tau)
			})
			// value at segment end feeds the next segment's starting point
			if next != nil {
				dt := next.Time - t0
				if tau > 0 {
					prevValue = target + (v0-target)*math.Exp(-dt/tau)
				} else {
					prevValue = target
				}
			} else {
				prevValue = target
			}
			prevTime = segEnd
		case SetValueCurve:
			curve := e.Curve
			dur := e.Duration
			t0 := e.Time
			fillRange(e.Time, e.Time+dur, func(t float64) float64 {
				if len(curve) == 0 {
					return prevValue
				}
				if len(curve) == 1 {
					return curve[0]
				}
				frac := (t - t0) / dur
				if frac < 0 {
					frac = 0
				}
				if frac > 1 {
					frac = 1
				}
				pos := frac * float64(len(curve)-1)
				idx := int(pos)
				if idx >= len(curve)-1 {
					return curve[len(curve)-1]
				}
				f := pos - float64(idx)
				return curve[idx]*(1-f) + curve[idx+1]*f
			})
			if len(curve) > 0 {
				prevValue = curve[len(curve)-1]
			}
			prevTime = e.Time + dur
		case LinearRamp:
			v0, t0 := prevValue, prevTime
			v1, t1 := e.Value, e.Time
			fillRange(prevTime, segEnd, func(t float64) float64 {
				if t1 == t0 {
					return v1
				}
				frac := (t - t0) / (t1 - t0)
				return v0 + (v1-v0)*frac
			})
			prevValue, prevTime = v1, t1
		case ExponentialRamp:
			v0, t0 := prevValue, prevTime
			v1, t1 := e.Value, e.Time
			fillRange(prevTime, segEnd, func(t float64) float64 {
				if v0 <= 0 || v1 <= 0 || t1 == t0 {
					return v0
				}
				frac := (t - t0) / (t1 - t0)
				return v0 * math.Pow(v1/v0, frac)
			})
			prevValue, prevTime = v1, t1
		}
	}

	// after last event, hold final value
	last := tl.events[len(tl.events)-1]
	lastEnd := last.Time
	if last.Type == SetValueCurve {
		lastEnd = last.Time + last.Duration
	}
	fillRange(lastEnd, math.Inf(1), func(float64) float64 { return prevValue })
}
