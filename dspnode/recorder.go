package dspnode

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/bus"
	"github.com/gosignal/audiograph/internal/wavio"
)

// Recorder is a pass-through tap that accumulates rendered audio for
// later export to a WAV file (§4.G Recorder): 1 input, 1 output,
// identical to input. Each StartRecording call is tagged with a fresh
// uuid so overlapping takes (start/stop/start again before WriteToFile)
// never get silently merged.
type Recorder struct {
	*audiograph.BaseNode

	recording  bool
	mixToMono  bool
	takeID     uuid.UUID
	sampleRate float64
	channels   [][]float32
}

// NewRecorder constructs a Recorder that is not yet recording.
func NewRecorder(ctx *audiograph.Context) *Recorder {
	b := ctx.NewBaseNode("recorder", 1, []int{2})
	n := &Recorder{
		BaseNode:   b,
		sampleRate: ctx.SampleRate(),
	}
	ctx.Register(n)
	return n
}

// StartRecording begins accumulating input frames under a new take id,
// discarding any previously accumulated (unwritten) take.
func (n *Recorder) StartRecording(mixToMono bool) uuid.UUID {
	n.takeID = uuid.New()
	n.mixToMono = mixToMono
	n.channels = nil
	n.recording = true
	return n.takeID
}

// StopRecording stops accumulating; the take remains in memory until
// WriteToFile or StartRecording discards it.
func (n *Recorder) StopRecording() { n.recording = false }

// TakeID returns the id of the most recently started take.
func (n *Recorder) TakeID() uuid.UUID { return n.takeID }

func (n *Recorder) Process(rc *audiograph.RenderContext, frames int, inputs []*bus.Bus) {
	out := n.Outputs()[0].Bus()
	out.Resize(frames)
	in := inputs[0]
	if in == nil {
		out.Zero()
		return
	}
	out.CopyFrom(in)
	if !n.recording || in.Silent {
		return
	}

	numChans := in.NumberOfChannels()
	if n.mixToMono {
		numChans = 1
	}
	for len(n.channels) < numChans {
		n.channels = append(n.channels, nil)
	}

	if n.mixToMono {
		mix := make([]float32, frames)
		inChans := in.NumberOfChannels()
		for c := 0; c < inChans; c++ {
			src := in.Channel(c)
			for i := 0; i < frames; i++ {
				mix[i] += src[i] / float32(inChans)
			}
		}
		n.channels[0] = append(n.channels[0], mix...)
		return
	}
	for c := 0; c < numChans; c++ {
		n.channels[c] = append(n.channels[c], in.Channel(c)...)
	}
}

// WriteToFile renders the accumulated take to path as a 32-bit float PCM
// WAV file via internal/wavio.
func (n *Recorder) WriteToFile(path string) error {
	if len(n.channels) == 0 {
		return fmt.Errorf("recorder: no frames captured for take %s", n.takeID)
	}
	frames := len(n.channels[0])
	b := bus.New(len(n.channels), frames, n.sampleRate)
	for c, data := range n.channels {
		copy(b.Channel(c), data)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	defer f.Close()
	return wavio.Encode(f, b, frames, n.sampleRate)
}

func (n *Recorder) CheckNumberOfChannelsForInput(rc *audiograph.RenderContext, in *audiograph.Input) {
	resizeOutputToInput(n.BaseNode, in)
}
