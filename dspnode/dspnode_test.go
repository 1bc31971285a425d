package dspnode_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/bus"
	"github.com/gosignal/audiograph/dspnode"
)

// dcSource is a minimal constant-value source, used only to feed
// deterministic input into the nodes under test without pulling in the
// scheduler machinery every test doesn't need.
type dcSource struct {
	*audiograph.BaseNode
	value float32
}

func newDCSource(ctx *audiograph.Context, value float32) *dcSource {
	b := ctx.NewBaseNode("testDC", 0, []int{1})
	n := &dcSource{BaseNode: b, value: value}
	ctx.Register(n)
	return n
}

func (n *dcSource) Process(rc *audiograph.RenderContext, frames int, inputs []*bus.Bus) {
	out := n.Outputs()[0].Bus()
	out.Resize(frames)
	ch := out.Channel(0)
	for i := range ch {
		ch[i] = n.value
	}
	out.Silent = n.value == 0
}

func (n *dcSource) CheckNumberOfChannelsForInput(rc *audiograph.RenderContext, in *audiograph.Input) {
}

func newTestOfflineContext(t *testing.T) *audiograph.OfflineContext {
	t.Helper()
	ctx, err := audiograph.NewOfflineContext(audiograph.StreamConfig{
		SampleRate: 48000, QuantumSize: 128, DesiredChannels: 2,
	})
	require.NoError(t, err)
	return ctx
}

func TestGainScalesSignal(t *testing.T) {
	ctx := newTestOfflineContext(t)
	src := newDCSource(ctx.Context, 1)
	g := dspnode.NewGain(ctx.Context)
	g.Gain.SetValue(0.25)

	require.NoError(t, ctx.Connect(g.Inputs()[0], src.Outputs()[0]))
	require.NoError(t, ctx.Connect(ctx.Destination(), g.Outputs()[0]))

	out := ctx.RenderToBuffer(256)
	for i := 0; i < out.Frames; i++ {
		assert.InDelta(t, 0.25, out.Channel(0)[i], 1e-4)
	}
}

func TestChannelSplitterMergerRoundTrip(t *testing.T) {
	ctx := newTestOfflineContext(t)
	src := newDCSource(ctx.Context, 0.5)

	merger := dspnode.NewChannelMerger(ctx.Context, 2)
	splitter := dspnode.NewChannelSplitter(ctx.Context, 2)

	require.NoError(t, ctx.Connect(splitter.Inputs()[0], src.Outputs()[0]))
	require.NoError(t, ctx.Connect(merger.Inputs()[0], splitter.Outputs()[0]))
	require.NoError(t, ctx.Connect(merger.Inputs()[1], splitter.Outputs()[1]))
	require.NoError(t, ctx.Connect(ctx.Destination(), merger.Outputs()[0]))

	out := ctx.RenderToBuffer(128)
	require.GreaterOrEqual(t, out.NumberOfChannels(), 2)
	// The mono source fills only channel 0; the splitter silences its
	// second output, so the merged channel 1 carries silence.
	for i := 0; i < out.Frames; i++ {
		assert.InDelta(t, 0.5, out.Channel(0)[i], 1e-4)
		assert.InDelta(t, 0, out.Channel(1)[i], 1e-4)
	}
}

func TestBiquadLowpassAttenuatesHighFrequency(t *testing.T) {
	ctx := newTestOfflineContext(t)
	osc := dspnode.NewOscillator(ctx.Context)
	osc.Type.Set(dspnode.Sine)
	osc.Frequency.SetValue(15000)

	bq := dspnode.NewBiquadFilter(ctx.Context)
	bq.Type.Set(dspnode.LPF)
	bq.Frequency.SetValue(200)

	require.NoError(t, ctx.Connect(bq.Inputs()[0], osc.Outputs()[0]))
	require.NoError(t, ctx.Connect(ctx.Destination(), bq.Outputs()[0]))

	osc.Start(ctx.Context, 0)

	out := ctx.RenderToBuffer(4096)
	var sumSq float64
	for _, v := range out.Channel(0) {
		sumSq += float64(v) * float64(v)
	}
	rms := math.Sqrt(sumSq / float64(out.Frames))
	assert.Less(t, rms, 0.2, "a 200Hz lowpass should heavily attenuate a 15kHz tone")
}

func TestOscillatorProducesSilenceBeforeStart(t *testing.T) {
	ctx := newTestOfflineContext(t)
	osc := dspnode.NewOscillator(ctx.Context)
	require.NoError(t, ctx.Connect(ctx.Destination(), osc.Outputs()[0]))

	out := ctx.RenderToBuffer(128)
	for _, v := range out.Channel(0) {
		assert.Equal(t, float32(0), v)
	}
}

func TestOscillatorStopsAfterScheduledStopTime(t *testing.T) {
	ctx := newTestOfflineContext(t)
	osc := dspnode.NewOscillator(ctx.Context)
	osc.Frequency.SetValue(440)
	require.NoError(t, ctx.Connect(ctx.Destination(), osc.Outputs()[0]))

	osc.Start(ctx.Context, 0)
	osc.Stop(0.01)

	out := ctx.RenderToBuffer(48000 / 20) // 50ms, well past the 10ms stop
	tail := out.Channel(0)[len(out.Channel(0))-128:]
	for _, v := range tail {
		assert.Equal(t, float32(0), v)
	}
}

func TestADSREnvelopeReachesSustainLevel(t *testing.T) {
	ctx := newTestOfflineContext(t)
	src := newDCSource(ctx.Context, 1)
	env := dspnode.NewADSR(ctx.Context)
	env.AttackTime.SetValue(0.01)
	env.DecayTime.SetValue(0.01)
	env.SustainLvl.SetValue(0.4)
	env.ReleaseTime.SetValue(0.2)

	require.NoError(t, ctx.Connect(env.Inputs()[0], src.Outputs()[0]))
	require.NoError(t, ctx.Connect(ctx.Destination(), env.Outputs()[0]))

	env.NoteOn(0)

	out := ctx.RenderToBuffer(48000 / 10) // 100ms, past attack+decay
	last := out.Channel(0)[out.Frames-1]
	assert.InDelta(t, 0.4, last, 0.05)
}

func TestClipHardThresholdClampsToRange(t *testing.T) {
	ctx := newTestOfflineContext(t)
	src := newDCSource(ctx.Context, 2)
	clip := dspnode.NewClip(ctx.Context)
	clip.A.SetValue(-0.5)
	clip.B.SetValue(0.5)

	require.NoError(t, ctx.Connect(clip.Inputs()[0], src.Outputs()[0]))
	require.NoError(t, ctx.Connect(ctx.Destination(), clip.Outputs()[0]))

	out := ctx.RenderToBuffer(128)
	for _, v := range out.Channel(0) {
		assert.InDelta(t, 0.5, v, 1e-6)
	}
}

func TestPWMComparatesCarrierAndModulator(t *testing.T) {
	ctx := newTestOfflineContext(t)
	carrier := newDCSource(ctx.Context, 0.8)
	mod := newDCSource(ctx.Context, 0.2)

	merger := dspnode.NewChannelMerger(ctx.Context, 2)
	pwm := dspnode.NewPWM(ctx.Context)

	require.NoError(t, ctx.Connect(merger.Inputs()[0], carrier.Outputs()[0]))
	require.NoError(t, ctx.Connect(merger.Inputs()[1], mod.Outputs()[0]))
	require.NoError(t, ctx.Connect(pwm.Inputs()[0], merger.Outputs()[0]))
	require.NoError(t, ctx.Connect(ctx.Destination(), pwm.Outputs()[0]))

	out := ctx.RenderToBuffer(128)
	for _, v := range out.Channel(0) {
		assert.Equal(t, float32(1), v, "carrier above modulator should yield the high comparator state")
	}
}

func TestPeakCompReducesGainAboveThreshold(t *testing.T) {
	ctx := newTestOfflineContext(t)
	src := newDCSource(ctx.Context, 1)
	pc := dspnode.NewPeakComp(ctx.Context)
	pc.Threshold.SetValue(-12)
	pc.Ratio.SetValue(4)

	require.NoError(t, ctx.Connect(pc.Inputs()[0], src.Outputs()[0]))
	require.NoError(t, ctx.Connect(ctx.Destination(), pc.Outputs()[0]))

	out := ctx.RenderToBuffer(4096)
	last := out.Channel(0)[out.Frames-1]
	assert.Less(t, float64(last), 1.0, "a DC input above threshold should be gain-reduced below unity")
}

func TestDelayDelaysAStep(t *testing.T) {
	ctx := newTestOfflineContext(t)
	src := newDCSource(ctx.Context, 0) // silent; switched to a DC level of 1 below
	delay := dspnode.NewDelay(ctx.Context, 0.5)
	delay.DelayTime.SetValue(0.001) // 48 samples at 48kHz

	require.NoError(t, ctx.Connect(delay.Inputs()[0], src.Outputs()[0]))
	require.NoError(t, ctx.Connect(ctx.Destination(), delay.Outputs()[0]))

	// render a block of silence through, then switch the source to a
	// constant 1 that stays on: a step from 0 to 1.
	_ = ctx.RenderToBuffer(128)
	src.value = 1
	out := ctx.RenderToBuffer(256)
	assert.Equal(t, float32(0), out.Channel(0)[0], "output should still be silent immediately after the step starts")

	var sawNonZero bool
	for _, v := range out.Channel(0) {
		if v != 0 {
			sawNonZero = true
			break
		}
	}
	assert.True(t, sawNonZero, "the delayed step should appear later in the block")
}
