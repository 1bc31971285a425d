package dspnode

import (
	"math"

	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/bus"
	"github.com/gosignal/audiograph/param"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Analyser is a pass-through tap exposing spectral and waveform
// snapshots (§4.G Analyser): 1 input, 1 output, identical to input.
type Analyser struct {
	*audiograph.BaseNode
	FFTSize               *param.Setting
	MinDecibels           *param.Setting
	MaxDecibels           *param.Setting
	SmoothingTimeConstant *param.Setting

	fft          *fourier.FFT
	fftSize      int
	ring         []float32 // most recent fftSize mono samples, circular
	ringPos      int
	ringFilled   bool
	smoothedMag  []float64
}

// NewAnalyser constructs an Analyser with a 2048-point FFT, matching the
// usual default for real-time spectrum displays.
func NewAnalyser(ctx *audiograph.Context) *Analyser {
	b := ctx.NewBaseNode("analyser", 1, []int{2})
	n := &Analyser{
		BaseNode:              b,
		FFTSize:               param.NewSetting("fftSize", param.SettingEnum, 2048),
		MinDecibels:           param.NewSetting("minDecibels", param.SettingFloat, -100.0),
		MaxDecibels:           param.NewSetting("maxDecibels", param.SettingFloat, -30.0),
		SmoothingTimeConstant: param.NewSetting("smoothingTimeConstant", param.SettingFloat, 0.8),
	}
	n.setFFTSize(2048)
	ctx.Register(n)
	return n
}

// SetFFTSize installs a new power-of-two FFT size, clearing history.
func (n *Analyser) SetFFTSize(size int) {
	n.FFTSize.Set(size)
	n.setFFTSize(size)
}

func (n *Analyser) setFFTSize(size int) {
	n.fftSize = size
	n.fft = fourier.NewFFT(size)
	n.ring = make([]float32, size)
	n.ringPos = 0
	n.ringFilled = false
	n.smoothedMag = make([]float64, size/2+1)
}

func (n *Analyser) Process(rc *audiograph.RenderContext, frames int, inputs []*bus.Bus) {
	out := n.Outputs()[0].Bus()
	out.Resize(frames)
	in := inputs[0]
	if in == nil {
		out.Zero()
		return
	}
	out.CopyFrom(in)

	if in.Silent {
		return
	}
	mono := in.Channel(0)
	for i := 0; i < frames; i++ {
		n.ring[n.ringPos] = mono[i]
		n.ringPos++
		if n.ringPos >= n.fftSize {
			n.ringPos = 0
			n.ringFilled = true
		}
	}
}

// FrequencyData returns the current smoothed magnitude spectrum in
// decibels, one value per FFT bin (length fftSize/2+1), applying a Hann
// window before transforming, per the usual real-time analyser recipe.
func (n *Analyser) FrequencyData() []float64 {
	windowed := make([]float64, n.fftSize)
	start := n.ringPos
	for i := 0; i < n.fftSize; i++ {
		idx := (start + i) % n.fftSize
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n.fftSize-1))
		windowed[i] = float64(n.ring[idx]) * w
	}
	coeffs := n.fft.Coefficients(nil, windowed)

	smoothing := n.SmoothingTimeConstant.Value().(float64)
	out := make([]float64, len(coeffs))
	for i, c := range coeffs {
		mag := math.Hypot(real(c), imag(c)) / float64(n.fftSize)
		n.smoothedMag[i] = smoothing*n.smoothedMag[i] + (1-smoothing)*mag
		db := 20 * math.Log10(n.smoothedMag[i]+1e-12)
		out[i] = db
	}
	return out
}

// FrequencyByteData maps FrequencyData into the [0,255] range implied by
// MinDecibels/MaxDecibels, for display code that wants bytes.
func (n *Analyser) FrequencyByteData() []byte {
	min := n.MinDecibels.Value().(float64)
	max := n.MaxDecibels.Value().(float64)
	data := n.FrequencyData()
	out := make([]byte, len(data))
	for i, db := range data {
		v := (db - min) / (max - min)
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		out[i] = byte(v * 255)
	}
	return out
}

// TimeDomainData returns the most recent fftSize raw samples, oldest
// first.
func (n *Analyser) TimeDomainData() []float32 {
	out := make([]float32, n.fftSize)
	start := n.ringPos
	if !n.ringFilled {
		start = 0
	}
	for i := 0; i < n.fftSize; i++ {
		out[i] = n.ring[(start+i)%n.fftSize]
	}
	return out
}

func (n *Analyser) CheckNumberOfChannelsForInput(rc *audiograph.RenderContext, in *audiograph.Input) {
}
