// Command render builds a small demo graph — an oscillator through an
// ADSR envelope and then a gain stage into the destination — and renders it
// offline to a WAV file, exercising the engine without any live audio
// device.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/dspnode"
	"github.com/gosignal/audiograph/internal/wavio"
)

type CLI struct {
	Output     string  `arg:"" name:"output" help:"WAV file to render into" default:"out.wav"`
	Duration   float64 `short:"d" help:"Render duration in seconds" default:"2.0"`
	Frequency  float64 `short:"f" help:"Oscillator frequency in Hz" default:"440"`
	Wave       string  `short:"w" help:"Waveform: sine, square, sawtooth, triangle" default:"sine" enum:"sine,square,sawtooth,triangle"`
	Gain       float64 `short:"g" help:"Gain applied after the envelope" default:"0.5"`
	SampleRate float64 `help:"Render sample rate" default:"48000"`
}

func waveType(name string) dspnode.WaveType {
	switch name {
	case "square":
		return dspnode.Square
	case "sawtooth":
		return dspnode.Sawtooth
	case "triangle":
		return dspnode.Triangle
	default:
		return dspnode.Sine
	}
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("render"),
		kong.Description("Offline demo renderer for the audiograph engine"),
		kong.UsageOnError(),
	)

	logger := log.Default()

	cfg := audiograph.DefaultStreamConfig()
	cfg.SampleRate = cli.SampleRate
	ctx, err := audiograph.NewOfflineContext(cfg)
	if err != nil {
		logger.Fatal("invalid stream config", "err", err)
	}

	osc := dspnode.NewOscillator(ctx.Context)
	osc.Type.Set(waveType(cli.Wave))
	osc.Frequency.SetValue(cli.Frequency)

	env := dspnode.NewADSR(ctx.Context)
	env.AttackTime.SetValue(0.02)
	env.DecayTime.SetValue(0.15)
	env.SustainLvl.SetValue(0.6)
	env.ReleaseTime.SetValue(0.3)

	gain := dspnode.NewGain(ctx.Context)
	gain.Gain.SetValue(cli.Gain)

	if err := ctx.Connect(env.Inputs()[0], osc.Outputs()[0]); err != nil {
		logger.Fatal("connect oscillator->envelope", "err", err)
	}
	if err := ctx.Connect(gain.Inputs()[0], env.Outputs()[0]); err != nil {
		logger.Fatal("connect envelope->gain", "err", err)
	}
	if err := ctx.Connect(ctx.Destination(), gain.Outputs()[0]); err != nil {
		logger.Fatal("connect gain->destination", "err", err)
	}

	osc.Start(ctx.Context, 0)
	env.NoteOn(0)
	env.NoteOff(cli.Duration * 0.7)
	osc.Stop(cli.Duration)

	frames := int(cli.Duration * cli.SampleRate)
	out := ctx.RenderToBuffer(frames)

	f, err := os.Create(cli.Output)
	if err != nil {
		logger.Fatal("create output file", "err", err)
	}
	defer f.Close()

	if err := wavio.Encode(f, out, frames, cli.SampleRate); err != nil {
		logger.Fatal("encode wav", "err", err)
	}

	fmt.Printf("rendered %d frames (%.2fs) to %s\n", frames, cli.Duration, cli.Output)
}
