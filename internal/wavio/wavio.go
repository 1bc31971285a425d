// Package wavio reads and writes the WAV files consumed and produced by
// the graph: sample/impulse-response loading for SampledAudioNode and
// Convolver, and 32-bit float PCM capture output for Recorder.
package wavio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gosignal/audiograph/bus"
)

// Decode reads a WAV file of any integer bit depth into a float32 bus,
// normalized to [-1, 1], via go-audio/wav's decoder.
func Decode(r io.Reader) (*bus.Bus, float64, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		return nil, 0, fmt.Errorf("wavio: Decode requires an io.ReadSeeker")
	}
	dec := wav.NewDecoder(rs)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("wavio: decode: %w", err)
	}
	return fromIntBuffer(buf), float64(dec.SampleRate), nil
}

func fromIntBuffer(buf *goaudio.IntBuffer) *bus.Bus {
	format := buf.Format
	numChans := 1
	if format != nil {
		numChans = format.NumChannels
	}
	if numChans < 1 {
		numChans = 1
	}
	frames := len(buf.Data) / numChans
	sampleRate := float64(44100)
	if format != nil {
		sampleRate = float64(format.SampleRate)
	}
	b := bus.New(numChans, frames, sampleRate)

	peak := float32(int(1) << uint(buf.SourceBitDepth-1))
	if buf.SourceBitDepth == 0 {
		peak = float32(1 << 15)
	}
	for c := 0; c < numChans; c++ {
		dst := b.Channel(c)
		for i := 0; i < frames; i++ {
			dst[i] = float32(buf.Data[i*numChans+c]) / peak
		}
	}
	return b
}

// Encode writes frames samples of b as a canonical 32-bit float PCM WAV
// file (RIFF/WAVE, fmt chunk audioFormat=3). go-audio/wav's Encoder only
// targets integer PCM via audio.IntBuffer, so the float container this
// package's Recorder requires is written directly; this is the one place
// in the module that hand-rolls a wire format instead of reaching for a
// library, and it is limited to this one container.
func Encode(w io.Writer, b *bus.Bus, frames int, sampleRate float64) error {
	numChans := b.NumberOfChannels()
	bitsPerSample := 32
	blockAlign := numChans * bitsPerSample / 8
	byteRate := int(sampleRate) * blockAlign
	dataSize := frames * blockAlign

	if err := writeChunkHeader(w, "RIFF", 4+8+16+8+dataSize); err != nil {
		return err
	}
	if _, err := w.Write([]byte("WAVE")); err != nil {
		return err
	}

	if err := writeChunkHeader(w, "fmt ", 16); err != nil {
		return err
	}
	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:], 3) // IEEE float
	binary.LittleEndian.PutUint16(fmtChunk[2:], uint16(numChans))
	binary.LittleEndian.PutUint32(fmtChunk[4:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(fmtChunk[8:], uint32(byteRate))
	binary.LittleEndian.PutUint16(fmtChunk[12:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(fmtChunk[14:], uint16(bitsPerSample))
	if _, err := w.Write(fmtChunk); err != nil {
		return err
	}

	if err := writeChunkHeader(w, "data", dataSize); err != nil {
		return err
	}
	frame := make([]byte, blockAlign)
	for i := 0; i < frames; i++ {
		for c := 0; c < numChans; c++ {
			v := b.Channel(c)[i]
			binary.LittleEndian.PutUint32(frame[c*4:], math.Float32bits(v))
		}
		if _, err := w.Write(frame); err != nil {
			return err
		}
	}
	return nil
}

func writeChunkHeader(w io.Writer, id string, size int) error {
	if _, err := w.Write([]byte(id)); err != nil {
		return err
	}
	var sz [4]byte
	binary.LittleEndian.PutUint32(sz[:], uint32(size))
	_, err := w.Write(sz[:])
	return err
}
