package bus

import "testing"

func TestNewClampsChannelCount(t *testing.T) {
	b := New(0, 128, 48000)
	if b.NumberOfChannels() != 1 {
		t.Fatalf("want 1 channel, got %d", b.NumberOfChannels())
	}
}

func TestZeroMarksSilent(t *testing.T) {
	b := New(2, 4, 48000)
	b.Channel(0)[0] = 1
	b.Silent = false
	b.Zero()
	if !b.Silent {
		t.Fatal("want Silent after Zero")
	}
	for c := 0; c < 2; c++ {
		for _, s := range b.Channel(c) {
			if s != 0 {
				t.Fatalf("channel %d not zeroed", c)
			}
		}
	}
}

func TestSumIntoSilentSourceIsNoop(t *testing.T) {
	dst := New(2, 4, 48000)
	src := New(2, 4, 48000)
	dst.Channel(0)[0] = 5
	dst.Silent = false
	SumInto(dst, src, Speakers)
	if dst.Channel(0)[0] != 5 {
		t.Fatalf("silent source must not perturb dst")
	}
}

func TestSumIntoMonoToStereo(t *testing.T) {
	dst := New(2, 4, 48000)
	dst.Silent = false
	src := New(1, 4, 48000)
	src.Silent = false
	src.Channel(0)[0] = 1
	SumInto(dst, src, Speakers)
	if dst.Channel(0)[0] != 1 || dst.Channel(1)[0] != 1 {
		t.Fatalf("mono source should duplicate to both stereo channels, got L=%v R=%v", dst.Channel(0)[0], dst.Channel(1)[0])
	}
}

func TestSumIntoStereoToMono(t *testing.T) {
	dst := New(1, 4, 48000)
	dst.Silent = false
	src := New(2, 4, 48000)
	src.Silent = false
	src.Channel(0)[0] = 1
	src.Channel(1)[0] = 0.5
	SumInto(dst, src, Speakers)
	want := float32(0.75)
	if dst.Channel(0)[0] != want {
		t.Fatalf("want %v, got %v", want, dst.Channel(0)[0])
	}
}

func TestSumIntoDiscreteTruncates(t *testing.T) {
	dst := New(2, 4, 48000)
	dst.Silent = false
	src := New(4, 4, 48000)
	src.Silent = false
	for c := 0; c < 4; c++ {
		src.Channel(c)[0] = float32(c + 1)
	}
	SumInto(dst, src, Discrete)
	if dst.Channel(0)[0] != 1 || dst.Channel(1)[0] != 2 {
		t.Fatalf("discrete mix should copy matching indices only, got %v %v", dst.Channel(0)[0], dst.Channel(1)[0])
	}
}

func TestDesiredChannelCountModes(t *testing.T) {
	conns := []int{1, 2, 6}
	if got := DesiredChannelCount(conns, Max, 0); got != 6 {
		t.Fatalf("Max: want 6, got %d", got)
	}
	if got := DesiredChannelCount(conns, ClampedMax, 2); got != 2 {
		t.Fatalf("ClampedMax: want 2, got %d", got)
	}
	if got := DesiredChannelCount(conns, Explicit, 4); got != 4 {
		t.Fatalf("Explicit: want 4, got %d", got)
	}
}
