package audiograph

import "github.com/gosignal/audiograph/param"

// Listener holds spatial-audio state consulted by Panner nodes, each
// field exposed as a Param so automation curves can steer it (§6
// "Listener state").
type Listener struct {
	PositionX, PositionY, PositionZ *param.Param
	ForwardX, ForwardY, ForwardZ    *param.Param
	UpX, UpY, UpZ                   *param.Param
	VelocityX, VelocityY, VelocityZ *param.Param
	DopplerFactor                   *param.Param
	SpeedOfSound                    *param.Param
}

func newListener() *Listener {
	inf := 1e9
	p := func(name string, def float64) *param.Param { return param.NewParam(name, def, -inf, inf) }
	return &Listener{
		PositionX: p("listener.position.x", 0), PositionY: p("listener.position.y", 0), PositionZ: p("listener.position.z", 0),
		ForwardX: p("listener.forward.x", 0), ForwardY: p("listener.forward.y", 0), ForwardZ: p("listener.forward.z", -1),
		UpX: p("listener.up.x", 0), UpY: p("listener.up.y", 1), UpZ: p("listener.up.z", 0),
		VelocityX: p("listener.velocity.x", 0), VelocityY: p("listener.velocity.y", 0), VelocityZ: p("listener.velocity.z", 0),
		DopplerFactor: param.NewParam("listener.dopplerFactor", 1, 0, inf),
		SpeedOfSound:  param.NewParam("listener.speedOfSound", 343.3, 1, inf),
	}
}

// ListenerSnapshot is a k-rate read of listener state for one quantum,
// consulted by Panner nodes when computing distance/cone/panning gain.
type ListenerSnapshot struct {
	Position, Forward, Up, Velocity [3]float64
	DopplerFactor, SpeedOfSound     float64
}

// Snapshot evaluates every listener parameter at quantumStart.
func (l *Listener) Snapshot(quantumStart, sampleRate float64) ListenerSnapshot {
	return ListenerSnapshot{
		Position:      [3]float64{l.PositionX.RenderKRate(quantumStart, sampleRate), l.PositionY.RenderKRate(quantumStart, sampleRate), l.PositionZ.RenderKRate(quantumStart, sampleRate)},
		Forward:       [3]float64{l.ForwardX.RenderKRate(quantumStart, sampleRate), l.ForwardY.RenderKRate(quantumStart, sampleRate), l.ForwardZ.RenderKRate(quantumStart, sampleRate)},
		Up:            [3]float64{l.UpX.RenderKRate(quantumStart, sampleRate), l.UpY.RenderKRate(quantumStart, sampleRate), l.UpZ.RenderKRate(quantumStart, sampleRate)},
		Velocity:      [3]float64{l.VelocityX.RenderKRate(quantumStart, sampleRate), l.VelocityY.RenderKRate(quantumStart, sampleRate), l.VelocityZ.RenderKRate(quantumStart, sampleRate)},
		DopplerFactor: l.DopplerFactor.RenderKRate(quantumStart, sampleRate),
		SpeedOfSound:  l.SpeedOfSound.RenderKRate(quantumStart, sampleRate),
	}
}
