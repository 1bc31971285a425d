// Package schedule implements the source-node playback state machine
// (§4.E): UNSCHEDULED → SCHEDULED → PLAYING → FINISHED, frame-accurate
// quantum windowing, and the auto-dispose list that keeps unreferenced
// scheduled sources alive until they finish.
package schedule

import "sync"

// State is a node's position in the playback state machine.
type State int

const (
	Unscheduled State = iota
	Scheduled
	Playing
	Finished
)

func (s State) String() string {
	switch s {
	case Unscheduled:
		return "Unscheduled"
	case Scheduled:
		return "Scheduled"
	case Playing:
		return "Playing"
	case Finished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// Scheduler tracks one source node's start/stop times and current state.
type Scheduler struct {
	mu      sync.Mutex
	state   State
	startAt float64
	stopAt  float64
	hasStop bool
	onEnded func()
}

// NewScheduler returns a Scheduler in the Unscheduled state.
func NewScheduler() *Scheduler { return &Scheduler{state: Unscheduled} }

// Start schedules playback to begin at `when` seconds on the context
// clock.
func (s *Scheduler) Start(when float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startAt = when
	s.state = Scheduled
}

// Stop schedules playback to end at `when` seconds on the context clock.
func (s *Scheduler) Stop(when float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopAt = when
	s.hasStop = true
}

// OnEnded installs a callback fired exactly once, when the scheduler
// transitions to Finished.
func (s *Scheduler) OnEnded(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnded = fn
}

// State returns the current playback state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PastStopTime reports whether this scheduler has a stop time at or
// before quantumStart and has already entered Playing, letting a source
// with no natural end (an Oscillator, say) know it should MarkFinished
// rather than keep rendering silence forever.
func (s *Scheduler) PastStopTime(quantumStart float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Playing && s.hasStop && s.stopAt <= quantumStart
}

// MarkFinished transitions to Finished and fires onEnded, if installed.
// Called by a node's process() once it detects completion (buffer
// exhausted, stop time elapsed, envelope release complete).
func (s *Scheduler) MarkFinished() {
	s.mu.Lock()
	already := s.state == Finished
	s.state = Finished
	cb := s.onEnded
	s.mu.Unlock()
	if !already && cb != nil {
		cb()
	}
}

// QuantumWindow computes, for the quantum [quantumStart, quantumStart+Δ)
// at the given sample rate, the frame offset at which this source should
// begin producing non-silent output this quantum, and the count of
// non-silent frames to render, per §4.E. It also advances Scheduled→
// Playing as appropriate; the Unscheduled→Scheduled step happens in Start.
func (s *Scheduler) QuantumWindow(quantumStart float64, frames int, sampleRate float64) (offset, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Unscheduled || s.state == Finished {
		return 0, 0
	}

	quantumEnd := quantumStart + float64(frames)/sampleRate

	if s.startAt >= quantumEnd {
		// hasn't started yet this quantum
		return 0, 0
	}

	begin := 0
	if s.startAt > quantumStart {
		begin = int((s.startAt - quantumStart) * sampleRate)
		if begin > frames {
			begin = frames
		}
	}

	end := frames
	if s.hasStop && s.stopAt < quantumEnd {
		if s.stopAt <= quantumStart {
			end = 0
		} else {
			end = int((s.stopAt - quantumStart) * sampleRate)
			if end > frames {
				end = frames
			}
		}
	}

	if s.state == Scheduled && begin < frames {
		s.state = Playing
	}

	if end <= begin {
		return begin, 0
	}
	return begin, end - begin
}

// AutoDisposeList keeps scheduled-but-unretained source nodes alive until
// they finish (macaudio-style: the engine, not the caller, owns lifetime
// for fire-and-forget playback). Scanned once per post-render task.
type AutoDisposeList struct {
	mu      sync.Mutex
	holders []autoDisposeEntry
}

type autoDisposeEntry struct {
	sched *Scheduler
	node  any
}

// Hold keeps node alive (by strong Go reference) until its scheduler
// reaches Finished.
func (l *AutoDisposeList) Hold(sched *Scheduler, node any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holders = append(l.holders, autoDisposeEntry{sched: sched, node: node})
}

// ReleaseFinished drops every entry whose scheduler has reached Finished,
// returning the released nodes so the caller can run any final teardown.
func (l *AutoDisposeList) ReleaseFinished() []any {
	l.mu.Lock()
	defer l.mu.Unlock()
	var released []any
	kept := l.holders[:0]
	for _, e := range l.holders {
		if e.sched.State() == Finished {
			released = append(released, e.node)
			continue
		}
		kept = append(kept, e)
	}
	l.holders = kept
	return released
}

// Len reports how many sources are currently held alive.
func (l *AutoDisposeList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.holders)
}
