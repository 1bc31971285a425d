// Package dspnode implements the built-in node library (§4.G, plus the
// clip/PWM/peakcomp kinds §4.B names but §4.G leaves uncontracted — see
// SPEC_FULL.md §5.1): Gain, Delay, BiquadFilter, WaveShaper,
// ChannelSplitter, ChannelMerger, Oscillator, SampledAudioNode, Panner,
// StereoPanner, Convolver, DynamicsCompressor, Analyser, Recorder, ADSR,
// Noise, Clip, PWM and PeakComp. Every kind embeds *audiograph.BaseNode
// and implements Process and CheckNumberOfChannelsForInput; BaseNode
// supplies the rest of the Node contract (ID, Base, default
// Reset/Initialize/Uninitialize/PropagatesSilence), and some kinds
// override Reset or PropagatesSilence.
//
// Per-quantum scratch buffers are sized once at construction from the
// context's quantum size (§4.F "No allocation of DSP buffers... occurs on
// the audio thread"). The exceptions that allocate inside Process are
// Recorder, which appends every quantum to its take, Delay, which
// reallocates its rings after an input channel-count change, and
// ChannelMerger and SampledAudioNode, which call ResizeChannels there.
package dspnode

import "github.com/gosignal/audiograph"

// clampF clamps v to [lo, hi].
func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// scratch is a reusable per-quantum float32 buffer, grown (never shrunk)
// on demand; under normal operation it is sized once at construction from
// the context's fixed quantum size and never reallocated again, since
// §5's StreamConfig fixes the quantum size for the life of the Context.
type scratch struct {
	buf []float32
}

func newScratch(frames int) scratch {
	return scratch{buf: make([]float32, frames)}
}

func (s *scratch) get(frames int) []float32 {
	if cap(s.buf) < frames {
		s.buf = make([]float32, frames)
	}
	return s.buf[:frames]
}

// resizeOutputToInput is the shared CheckNumberOfChannelsForInput body for
// every channel-count-preserving node kind (gain, biquad, delay,
// waveshaper, ADSR, clip, PWM, peakcomp, recorder): resize the sole output to match the sole
// input's current channel count (§4.B). DynamicsCompressor and Analyser
// are fixed-shape (their output channel count never tracks input width)
// and so implement CheckNumberOfChannelsForInput as a no-op instead.
func resizeOutputToInput(n *audiograph.BaseNode, in *audiograph.Input) {
	n.Outputs()[0].ResizeChannels(in.NumberOfChannels())
}
