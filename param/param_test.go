package param

import (
	"testing"

	"github.com/gosignal/audiograph/bus"
)

func TestSetValueClampsToRange(t *testing.T) {
	p := NewParam("gain", 1, 0, 2)
	p.SetValue(5)
	if p.intrinsic != 2 {
		t.Fatalf("want clamp to max 2, got %v", p.intrinsic)
	}
	p.SetValue(-5)
	if p.intrinsic != 0 {
		t.Fatalf("want clamp to min 0, got %v", p.intrinsic)
	}
}

func TestIsARateReflectsTimelineAndModulators(t *testing.T) {
	p := NewParam("freq", 440, 10, 22500)
	if p.IsARate() {
		t.Fatal("want k-rate with no events or modulators")
	}
	p.SetValueAtTime(880, 0)
	if !p.IsARate() {
		t.Fatal("want a-rate once timeline has events")
	}
}

type fakeModulator struct{ val float32 }

func (f fakeModulator) PullModulator(frames int) *bus.Bus {
	b := bus.New(1, frames, 44100)
	for i := 0; i < frames; i++ {
		b.Channel(0)[i] = f.val
	}
	b.Silent = false
	return b
}

func TestRenderARateSumsModulators(t *testing.T) {
	p := NewParam("freq", 0, -1000, 1000)
	p.SetValue(100)
	p.ConnectModulator(fakeModulator{val: 5})
	buf := make([]float32, 8)
	p.RenderARate(0, buf, 44100)
	for _, v := range buf {
		if v <= 100 {
			t.Fatalf("expected modulator contribution added on top of intrinsic, got %v", v)
		}
	}
}

func TestRenderKRateDezippersTowardIntrinsic(t *testing.T) {
	p := NewParam("gain", 0, 0, 1)
	p.smoothed = 0
	p.smoothSet = true
	p.SetValue(1)
	prev := p.RenderKRate(0, 44100)
	next := p.RenderKRate(1.0/44100, 44100)
	if !(next > prev && next < 1) {
		t.Fatalf("expected gradual approach, got prev=%v next=%v", prev, next)
	}
}

func TestDisconnectModulatorRemoves(t *testing.T) {
	p := NewParam("x", 0, -1, 1)
	m := fakeModulator{val: 1}
	p.ConnectModulator(m)
	if len(p.modulators) != 1 {
		t.Fatal("expected modulator connected")
	}
	p.DisconnectModulator(m)
	if len(p.modulators) != 0 {
		t.Fatal("expected modulator removed")
	}
}
