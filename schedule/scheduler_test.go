package schedule

import "testing"

func TestStartTransitionsToScheduled(t *testing.T) {
	s := NewScheduler()
	s.Start(1.0)
	if s.State() != Scheduled {
		t.Fatalf("want Scheduled, got %v", s.State())
	}
}

func TestQuantumWindowLateStart(t *testing.T) {
	// Property 6 from spec.md §8: start(t) falling at sample-frame k
	// produces first non-zero sample at exactly frame k.
	s := NewScheduler()
	sampleRate := 44100.0
	frames := 128
	startSec := 64.0 / sampleRate
	s.Start(startSec)
	offset, count := s.QuantumWindow(0, frames, sampleRate)
	if offset != 64 {
		t.Fatalf("want offset 64, got %d", offset)
	}
	if count != frames-64 {
		t.Fatalf("want count %d, got %d", frames-64, count)
	}
	if s.State() != Playing {
		t.Fatalf("want Playing after window includes start, got %v", s.State())
	}
}

func TestQuantumWindowNotYetStarted(t *testing.T) {
	s := NewScheduler()
	s.Start(10.0)
	offset, count := s.QuantumWindow(0, 128, 44100)
	if count != 0 {
		t.Fatalf("want 0 frames before start, got offset=%d count=%d", offset, count)
	}
	if s.State() != Scheduled {
		t.Fatalf("want still Scheduled, got %v", s.State())
	}
}

func TestQuantumWindowStopMidQuantum(t *testing.T) {
	s := NewScheduler()
	sampleRate := 44100.0
	s.Start(0)
	s.Stop(64.0 / sampleRate)
	_, count := s.QuantumWindow(0, 128, sampleRate)
	if count != 64 {
		t.Fatalf("want 64 non-silent frames before stop, got %d", count)
	}
}

func TestMarkFinishedFiresOnEndedOnce(t *testing.T) {
	s := NewScheduler()
	calls := 0
	s.OnEnded(func() { calls++ })
	s.MarkFinished()
	s.MarkFinished()
	if calls != 1 {
		t.Fatalf("want onEnded fired exactly once, got %d", calls)
	}
	if s.State() != Finished {
		t.Fatalf("want Finished, got %v", s.State())
	}
}

func TestAutoDisposeListReleasesOnlyFinished(t *testing.T) {
	var list AutoDisposeList
	s1, s2 := NewScheduler(), NewScheduler()
	list.Hold(s1, "node1")
	list.Hold(s2, "node2")
	s1.MarkFinished()
	released := list.ReleaseFinished()
	if len(released) != 1 || released[0] != "node1" {
		t.Fatalf("want only node1 released, got %v", released)
	}
	if list.Len() != 1 {
		t.Fatalf("want 1 remaining held, got %d", list.Len())
	}
}
