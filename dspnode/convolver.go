package dspnode

import (
	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/bus"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Convolver applies an impulse response via uniformly-partitioned
// frequency-domain convolution (§4.G Convolver): 1 input, 1 output. The
// impulse response is split into blockSize-length partitions, each FFT'd
// once at load time; every quantum, the current input block's spectrum
// is multiplied against every partition's spectrum and summed before a
// single inverse FFT, the textbook approach for convolving against long
// impulse responses without an FFT per partition per quantum.
type Convolver struct {
	*audiograph.BaseNode

	blockSize int
	fft       *fourier.FFT

	irSpectra   [][]complex128 // one half-spectrum per IR partition
	history     [][]complex128 // ring of input-block half-spectra
	historyNext int

	overlap []float32 // carry-over tail from the previous quantum, per channel
	scratchPadded []float64
	scratchAcc    []complex128
	scratchTime   []float64
}

// NewConvolver constructs a Convolver with no impulse response loaded
// (silent until SetImpulseResponse is called).
func NewConvolver(ctx *audiograph.Context) *Convolver {
	b := ctx.NewBaseNode("convolver", 1, []int{2})
	n := &Convolver{
		BaseNode:  b,
		blockSize: ctx.QuantumSize(),
	}
	n.fft = fourier.NewFFT(2 * n.blockSize)
	n.scratchPadded = make([]float64, 2*n.blockSize)
	n.scratchAcc = make([]complex128, n.blockSize+1)
	n.scratchTime = make([]float64, 2*n.blockSize)
	n.overlap = make([]float32, n.blockSize)
	ctx.Register(n)
	return n
}

// SetImpulseResponse loads a new (mono) impulse response, replacing any
// previous one and updating TailTime to its duration.
func (n *Convolver) SetImpulseResponse(ir []float32, sampleRate float64) {
	numPartitions := (len(ir) + n.blockSize - 1) / n.blockSize
	if numPartitions == 0 {
		numPartitions = 1
	}
	n.irSpectra = make([][]complex128, numPartitions)
	n.history = make([][]complex128, numPartitions)
	padded := make([]float64, 2*n.blockSize)
	for p := 0; p < numPartitions; p++ {
		for i := range padded {
			padded[i] = 0
		}
		start := p * n.blockSize
		for i := 0; i < n.blockSize && start+i < len(ir); i++ {
			padded[i] = float64(ir[start+i])
		}
		spectrum := make([]complex128, n.blockSize+1)
		n.fft.Coefficients(spectrum, padded)
		n.irSpectra[p] = spectrum
		n.history[p] = make([]complex128, n.blockSize+1)
	}
	n.historyNext = 0
	n.SetTailTime(float64(len(ir)) / sampleRate)
}

func (n *Convolver) Process(rc *audiograph.RenderContext, frames int, inputs []*bus.Bus) {
	out := n.Outputs()[0].Bus()
	out.Resize(frames)
	in := inputs[0]

	if len(n.irSpectra) == 0 || in == nil || in.Silent {
		out.Zero()
		return
	}

	// Input channel 0 alone drives the filter; other input channels are
	// ignored, and both output channels carry the same result.
	src := in.Channel(0)
	for i := range n.scratchPadded {
		n.scratchPadded[i] = 0
	}
	for i := 0; i < frames && i < n.blockSize; i++ {
		n.scratchPadded[i] = float64(src[i])
	}

	spectrum := n.history[n.historyNext]
	n.fft.Coefficients(spectrum, n.scratchPadded)

	numPartitions := len(n.irSpectra)
	for k := range n.scratchAcc {
		n.scratchAcc[k] = 0
	}
	for p := 0; p < numPartitions; p++ {
		histIdx := (n.historyNext - p + numPartitions) % numPartitions
		hist := n.history[histIdx]
		ir := n.irSpectra[p]
		for k := range n.scratchAcc {
			n.scratchAcc[k] += hist[k] * ir[k]
		}
	}
	n.historyNext = (n.historyNext + 1) % numPartitions

	n.fft.Sequence(n.scratchTime, n.scratchAcc)

	left, right := out.Channel(0), out.Channel(1)
	for i := 0; i < frames && i < n.blockSize; i++ {
		v := float32(n.scratchTime[i]) + n.overlap[i]
		left[i] = v
		right[i] = v
	}
	for i := 0; i < n.blockSize; i++ {
		n.overlap[i] = float32(n.scratchTime[n.blockSize+i])
	}
	out.Silent = false
}

func (n *Convolver) CheckNumberOfChannelsForInput(rc *audiograph.RenderContext, in *audiograph.Input) {
}
