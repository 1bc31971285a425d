package audiograph

import "github.com/gosignal/audiograph/bus"

// OfflineContext renders into a preallocated buffer "as fast as possible"
// rather than paced by a ticker (§9 Open Questions: the source's
// ambiguity over wall-clock vs. as-fast-as-possible pacing is resolved in
// favor of as-fast-as-possible, with identical per-quantum semantics to
// realtime rendering — the same RenderQuantum call is used either way).
type OfflineContext struct {
	*Context
}

// NewOfflineContext validates cfg and constructs an OfflineContext.
func NewOfflineContext(cfg StreamConfig) (*OfflineContext, error) {
	ctx, err := NewContext(cfg)
	if err != nil {
		return nil, err
	}
	return &OfflineContext{Context: ctx}, nil
}

// RenderToBuffer renders totalFrames frames in quantum-sized chunks,
// looping RenderQuantum back-to-back with no pacing, and returns the
// concatenated result as a single bus sized to the context's configured
// channel count.
func (o *OfflineContext) RenderToBuffer(totalFrames int) *bus.Bus {
	out := bus.New(o.config.DesiredChannels, totalFrames, o.config.SampleRate)
	quantum := o.config.QuantumSize
	rendered := 0
	for rendered < totalFrames {
		n := quantum
		if rendered+n > totalFrames {
			n = totalFrames - rendered
		}
		q := o.RenderQuantum(n)
		channels := out.NumberOfChannels()
		if q.NumberOfChannels() < channels {
			channels = q.NumberOfChannels()
		}
		for c := 0; c < channels; c++ {
			copy(out.Channel(c)[rendered:rendered+n], q.Channel(c)[:n])
		}
		rendered += n
	}
	return out
}
