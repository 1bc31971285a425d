package audiograph

import "testing"

func TestDispatcherConnectAndDisconnect(t *testing.T) {
	ctx := newTestContext(t)
	src := newTestSource(ctx, 1)

	if err := ctx.Dispatcher().Connect(ctx.Destination(), src.Base().Outputs()[0]); err != nil {
		t.Fatalf("dispatcher connect: %v", err)
	}

	out := ctx.RenderQuantum(ctx.QuantumSize())
	if out.Silent {
		t.Fatal("want non-silent output after dispatcher connect")
	}

	if err := ctx.Dispatcher().Disconnect(ctx.Destination(), src.Base().Outputs()[0]); err != nil {
		t.Fatalf("dispatcher disconnect: %v", err)
	}
	out = ctx.RenderQuantum(ctx.QuantumSize())
	if !out.Silent {
		t.Fatal("want silent output after dispatcher disconnect")
	}
}

func TestDispatcherTracksOperationDuration(t *testing.T) {
	ctx := newTestContext(t)
	src := newTestSource(ctx, 1)

	if err := ctx.Dispatcher().Connect(ctx.Destination(), src.Base().Outputs()[0]); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if ctx.Dispatcher().LastOperationDuration() < 0 {
		t.Fatal("want a recorded non-negative operation duration")
	}
}

func TestAutomaticPullNodeRunsWithoutConsumer(t *testing.T) {
	ctx := newTestContext(t)
	tap := newTestPassthrough(ctx)

	src := newTestSource(ctx, 1)
	tok := ctx.graphLock.Lock()
	ctx.graph.Connect(tok, tap.Base().Inputs()[0], src.Base().Outputs()[0])
	ctx.graph.AddAutomaticPullNode(tok, tap)
	ctx.graphLock.Unlock(tok)

	ctx.RenderQuantum(ctx.QuantumSize())
	if tap.processCount != 1 {
		t.Fatalf("want automatic-pull node processed exactly once despite no graph consumer, got %d", tap.processCount)
	}
}

func TestOfflineRenderToBufferAccumulatesFrames(t *testing.T) {
	octx, err := NewOfflineContext(StreamConfig{SampleRate: 44100, QuantumSize: 64, DesiredChannels: 2})
	if err != nil {
		t.Fatalf("NewOfflineContext: %v", err)
	}
	src := newTestSource(octx.Context, 1)

	tok := octx.graphLock.Lock()
	octx.graph.Connect(tok, octx.Destination(), src.Base().Outputs()[0])
	octx.graphLock.Unlock(tok)

	out := octx.RenderToBuffer(256)
	if out.Frames != 256 {
		t.Fatalf("want 256 rendered frames, got %d", out.Frames)
	}
	if out.Channel(0)[255] != 1 {
		t.Fatalf("want last frame to carry the DC source value, got %v", out.Channel(0)[255])
	}
}
