package audiograph

import (
	"testing"

	"github.com/gosignal/audiograph/bus"
)

// testPassthroughNode is a minimal 1-in/1-out node used only to exercise
// the graph/pull machinery in this package's own tests, without depending
// on the dspnode package (which in turn depends on this package).
type testPassthroughNode struct {
	*BaseNode
	processCount int
}

func newTestPassthrough(ctx *Context) *testPassthroughNode {
	b := ctx.NewBaseNode("testPassthrough", 1, []int{2})
	n := &testPassthroughNode{BaseNode: b}
	ctx.Register(n)
	return n
}

func (n *testPassthroughNode) Process(rc *RenderContext, frames int, inputs []*bus.Bus) {
	n.processCount++
	out := n.Base().Outputs()[0].Bus()
	out.Resize(frames)
	if len(inputs) == 0 || inputs[0] == nil {
		out.Zero()
		return
	}
	out.CopyFrom(inputs[0])
}

func (n *testPassthroughNode) CheckNumberOfChannelsForInput(rc *RenderContext, in *Input) {}

// testSourceNode produces a constant DC value on its single mono output,
// for deterministic render tests.
type testSourceNode struct {
	*BaseNode
	value        float32
	processCount int
}

func newTestSource(ctx *Context, value float32) *testSourceNode {
	b := ctx.NewBaseNode("testSource", 0, []int{1})
	n := &testSourceNode{BaseNode: b, value: value}
	ctx.Register(n)
	return n
}

func (n *testSourceNode) Process(rc *RenderContext, frames int, inputs []*bus.Bus) {
	n.processCount++
	out := n.Base().Outputs()[0].Bus()
	out.Resize(frames)
	ch := out.Channel(0)
	for i := range ch {
		ch[i] = n.value
	}
	out.Silent = n.value == 0
}

func (n *testSourceNode) CheckNumberOfChannelsForInput(rc *RenderContext, in *Input) {}

func newTestContext(t *testing.T) *Context {
	t.Helper()
	ctx, err := NewContext(StreamConfig{SampleRate: 44100, QuantumSize: 64, DesiredChannels: 2})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return ctx
}

func TestConnectIsIdempotent(t *testing.T) {
	ctx := newTestContext(t)
	src := newTestSource(ctx, 1)
	dst := newTestPassthrough(ctx)

	tok := ctx.graphLock.Lock()
	if err := ctx.graph.Connect(tok, dst.Base().Inputs()[0], src.Base().Outputs()[0]); err != nil {
		t.Fatalf("first connect: %v", err)
	}
	if err := ctx.graph.Connect(tok, dst.Base().Inputs()[0], src.Base().Outputs()[0]); err != nil {
		t.Fatalf("second connect should be a no-op, got err: %v", err)
	}
	ctx.graphLock.Unlock(tok)

	if n := len(dst.Base().Inputs()[0].liveConnections); n != 1 {
		t.Fatalf("want exactly 1 live connection after duplicate connect, got %d", n)
	}
}

func TestSelfConnectionCycleRejected(t *testing.T) {
	ctx := newTestContext(t)
	n := newTestPassthrough(ctx)

	tok := ctx.graphLock.Lock()
	defer ctx.graphLock.Unlock(tok)
	err := ctx.graph.Connect(tok, n.Base().Inputs()[0], n.Base().Outputs()[0])
	if err == nil {
		t.Fatal("expected cycle rejection for a node feeding its own input")
	}
}

func TestRenderQuantumPullsSource(t *testing.T) {
	ctx := newTestContext(t)
	src := newTestSource(ctx, 1)

	tok := ctx.graphLock.Lock()
	if err := ctx.graph.Connect(tok, ctx.Destination(), src.Base().Outputs()[0]); err != nil {
		t.Fatalf("connect: %v", err)
	}
	ctx.graphLock.Unlock(tok)

	out := ctx.RenderQuantum(ctx.QuantumSize())
	if out.Silent {
		t.Fatal("want non-silent output once a DC source is connected")
	}
	if out.Channel(0)[0] != 1 {
		t.Fatalf("want sample 1, got %v", out.Channel(0)[0])
	}
}

func TestPullMemoizationAcrossFanOut(t *testing.T) {
	ctx := newTestContext(t)
	src := newTestSource(ctx, 1)
	a := newTestPassthrough(ctx)
	b := newTestPassthrough(ctx)

	tok := ctx.graphLock.Lock()
	ctx.graph.Connect(tok, a.Base().Inputs()[0], src.Base().Outputs()[0])
	ctx.graph.Connect(tok, b.Base().Inputs()[0], src.Base().Outputs()[0])
	ctx.graph.Connect(tok, ctx.Destination(), a.Base().Outputs()[0])
	ctx.graph.Connect(tok, ctx.Destination(), b.Base().Outputs()[0])
	ctx.graphLock.Unlock(tok)

	ctx.RenderQuantum(ctx.QuantumSize())
	if src.processCount != 1 {
		t.Fatalf("want source processed exactly once despite 2 consumers, got %d", src.processCount)
	}
}

func TestDisconnectSilencesDownstream(t *testing.T) {
	ctx := newTestContext(t)
	src := newTestSource(ctx, 1)

	tok := ctx.graphLock.Lock()
	ctx.graph.Connect(tok, ctx.Destination(), src.Base().Outputs()[0])
	ctx.graphLock.Unlock(tok)
	ctx.RenderQuantum(ctx.QuantumSize())

	tok2 := ctx.graphLock.Lock()
	ctx.graph.Disconnect(tok2, ctx.Destination(), src.Base().Outputs()[0])
	ctx.graphLock.Unlock(tok2)

	out := ctx.RenderQuantum(ctx.QuantumSize())
	if !out.Silent {
		t.Fatal("want destination silent after disconnecting its sole source")
	}
}
