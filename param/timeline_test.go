package param

import (
	"math"
	"testing"
)

func approxEqual(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestLinearRampContinuity(t *testing.T) {
	// Property 5 from spec.md §8: SetValue(v0,0) + LinearRamp(v1,T) implies
	// sample at t in [0,T] equals v0 + (v1-v0)*t/T.
	var tl Timeline
	if err := tl.Insert(Event{Type: SetValue, Value: 0, Time: 0}); err != nil {
		t.Fatal(err)
	}
	if err := tl.Insert(Event{Type: LinearRamp, Value: 1, Time: 1}); err != nil {
		t.Fatal(err)
	}
	sampleRate := 44100.0
	n := 44100
	buf := make([]float32, n)
	tl.ValuesForTimeRange(0, 0, buf, sampleRate)
	for i := 0; i < n; i++ {
		tSec := float64(i) / sampleRate
		want := tSec / 1.0
		if !approxEqual(float64(buf[i]), want, 1e-4) {
			t.Fatalf("frame %d: want %v got %v", i, want, buf[i])
		}
	}
}

func TestSetValueHoldsUntilNextEvent(t *testing.T) {
	var tl Timeline
	tl.Insert(Event{Type: SetValue, Value: 5, Time: 0})
	buf := make([]float32, 10)
	tl.ValuesForTimeRange(0, 0, buf, 10)
	for i, v := range buf {
		if v != 5 {
			t.Fatalf("index %d: want 5 got %v", i, v)
		}
	}
}

func TestDefaultBeforeFirstEvent(t *testing.T) {
	var tl Timeline
	tl.Insert(Event{Type: SetValue, Value: 5, Time: 1})
	buf := make([]float32, 20)
	tl.ValuesForTimeRange(0, -1, buf, 10)
	if buf[0] != -1 {
		t.Fatalf("want default -1 before first event, got %v", buf[0])
	}
	if buf[len(buf)-1] != 5 {
		t.Fatalf("want 5 after event time, got %v", buf[len(buf)-1])
	}
}

func TestExponentialRampNonPositiveEndpointPropagatesPrevious(t *testing.T) {
	var tl Timeline
	tl.Insert(Event{Type: SetValue, Value: 0, Time: 0})
	tl.Insert(Event{Type: ExponentialRamp, Value: 5, Time: 1})
	buf := make([]float32, 10)
	tl.ValuesForTimeRange(0, 0, buf, 10)
	for _, v := range buf {
		if v != 0 {
			t.Fatalf("want propagated previous value 0 when endpoint <= 0, got %v", v)
		}
	}
}

func TestSetTargetExponentialApproach(t *testing.T) {
	var tl Timeline
	tl.Insert(Event{Type: SetValue, Value: 0, Time: 0})
	tl.Insert(Event{Type: SetTarget, Value: 1, Time: 0, TimeConstant: 0.1})
	sampleRate := 100.0
	buf := make([]float32, 50)
	tl.ValuesForTimeRange(0, 0, buf, sampleRate)
	// value should be monotonically increasing toward 1
	for i := 1; i < len(buf); i++ {
		if buf[i] < buf[i-1] {
			t.Fatalf("expected monotonic approach, got decrease at %d: %v -> %v", i, buf[i-1], buf[i])
		}
	}
	if buf[len(buf)-1] <= 0.5 {
		t.Fatalf("expected substantial approach toward target by end, got %v", buf[len(buf)-1])
	}
}

func TestCurveOverlapRejected(t *testing.T) {
	var tl Timeline
	if err := tl.Insert(Event{Type: SetValueCurve, Curve: []float64{0, 1}, Time: 0, Duration: 1}); err != nil {
		t.Fatal(err)
	}
	if err := tl.Insert(Event{Type: SetValue, Value: 1, Time: 0.5}); err == nil {
		t.Fatal("expected overlap rejection")
	}
}

func TestSameTimeTypeOverwrites(t *testing.T) {
	var tl Timeline
	tl.Insert(Event{Type: SetValue, Value: 1, Time: 0})
	tl.Insert(Event{Type: SetValue, Value: 2, Time: 0})
	if len(tl.events) != 1 || tl.events[0].Value != 2 {
		t.Fatalf("expected overwrite, got %+v", tl.events)
	}
}

func TestValidateRejectsNegativeTime(t *testing.T) {
	var tl Timeline
	if err := tl.Insert(Event{Type: SetValue, Value: 1, Time: -1}); err == nil {
		t.Fatal("expected validation error for negative time")
	}
}
