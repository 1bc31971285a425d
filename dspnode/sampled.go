package dspnode

import (
	"math"

	"github.com/gosignal/audiograph"
	"github.com/gosignal/audiograph/bus"
	"github.com/gosignal/audiograph/param"
	"github.com/gosignal/audiograph/schedule"
)

// SampledAudioNode plays back an in-memory multi-channel sample buffer
// (§4.G SampledAudioNode): 0 inputs, 1 output, source-scheduled.
type SampledAudioNode struct {
	*audiograph.BaseNode
	Gain         *param.Param
	PlaybackRate *param.Param
	Loop         *param.Setting
	LoopStart    *param.Setting
	LoopEnd      *param.Setting
	Scheduler    *schedule.Scheduler

	buffer     *bus.Bus
	bufferRate float64
	pos        float64
}

// NewSampledAudioNode constructs a node with no buffer loaded; Process
// renders silence until SetBuffer is called.
func NewSampledAudioNode(ctx *audiograph.Context) *SampledAudioNode {
	b := ctx.NewBaseNode("sampledAudio", 0, []int{1})
	n := &SampledAudioNode{
		BaseNode:     b,
		Gain:         param.NewParam("gain", 1, 0, 1),
		PlaybackRate: param.NewParam("playbackRate", 1, 1.0/1024, 1024),
		Loop:         param.NewSetting("loop", param.SettingBool, false),
		LoopStart:    param.NewSetting("loopStart", param.SettingFloat, 0.0),
		LoopEnd:      param.NewSetting("loopEnd", param.SettingFloat, 0.0),
		Scheduler:    schedule.NewScheduler(),
	}
	ctx.Register(n)
	return n
}

// SetBuffer installs the decoded sample data this node plays back, at
// its native sample rate. Resampling to the context's rendering sample
// rate happens per-sample in Process via PlaybackRate.
func (n *SampledAudioNode) SetBuffer(buf *bus.Bus, sampleRate float64) {
	n.buffer = buf
	n.bufferRate = sampleRate
	n.pos = 0
	if n.LoopEnd.Value().(float64) == 0 && buf != nil && sampleRate > 0 {
		n.LoopEnd.Set(float64(len(buf.Channel(0))) / sampleRate)
	}
}

// Start schedules playback to begin at `when` seconds.
func (n *SampledAudioNode) Start(ctx *audiograph.Context, when float64) {
	n.Scheduler.Start(when)
	ctx.HoldUntilFinished(n.Scheduler, n)
}

// Stop schedules playback to end at `when` seconds.
func (n *SampledAudioNode) Stop(when float64) { n.Scheduler.Stop(when) }

// PropagatesSilence is true whenever this source is not currently
// playing: unscheduled, finished, or buffer-exhausted (§4.G: "propagates
// silence = not playing").
func (n *SampledAudioNode) PropagatesSilence(now float64) bool {
	st := n.Scheduler.State()
	return st == schedule.Unscheduled || st == schedule.Finished
}

func (n *SampledAudioNode) loopBounds() (start, end float64) {
	frames := 0
	if n.buffer != nil {
		frames = len(n.buffer.Channel(0))
	}
	total := float64(frames) / n.bufferRate
	start = n.LoopStart.Value().(float64)
	end = n.LoopEnd.Value().(float64)
	if end <= start {
		end = total
	}
	return
}

func (n *SampledAudioNode) Process(rc *audiograph.RenderContext, frames int, inputs []*bus.Bus) {
	out := n.Outputs()[0]
	if n.buffer != nil {
		out.ResizeChannels(n.buffer.NumberOfChannels())
	}
	ob := out.Bus()
	ob.Resize(frames)

	offset, count := n.Scheduler.QuantumWindow(rc.Now, frames, rc.SampleRate)
	if n.buffer == nil || count == 0 {
		ob.Zero()
		if n.Scheduler.PastStopTime(rc.Now) {
			n.Scheduler.MarkFinished()
		}
		return
	}

	ob.Zero()
	rate := n.PlaybackRate.RenderKRate(rc.Now, rc.SampleRate)
	step := rate * n.bufferRate / rc.SampleRate
	loop, _ := n.Loop.Value().(bool)
	loopStart, loopEnd := n.loopBounds()
	srcFrames := len(n.buffer.Channel(0))
	exhausted := false

	for i := offset; i < offset+count && i < frames; i++ {
		if n.pos >= float64(srcFrames) {
			if loop && loopEnd > loopStart {
				n.pos = loopStart * n.bufferRate
			} else {
				exhausted = true
				break
			}
		}
		i0 := int(n.pos)
		i1 := i0 + 1
		if i1 >= srcFrames {
			i1 = srcFrames - 1
		}
		frac := float32(n.pos - math.Floor(n.pos))
		for c := 0; c < n.buffer.NumberOfChannels(); c++ {
			src := n.buffer.Channel(c)
			ob.Channel(c)[i] = (src[i0]*(1-frac) + src[i1]*frac)
		}
		n.pos += step
		if loop && n.pos >= loopEnd*n.bufferRate {
			n.pos = loopStart * n.bufferRate
		}
	}

	gain := n.Gain.RenderKRate(rc.Now, rc.SampleRate)
	if gain != 1 {
		for c := 0; c < ob.NumberOfChannels(); c++ {
			ch := ob.Channel(c)
			for i := offset; i < offset+count && i < frames; i++ {
				ch[i] *= float32(gain)
			}
		}
	}
	ob.Silent = false

	if exhausted {
		n.Scheduler.MarkFinished()
	}
}

func (n *SampledAudioNode) CheckNumberOfChannelsForInput(rc *audiograph.RenderContext, in *audiograph.Input) {
}
