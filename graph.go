package audiograph

import (
	"sync"

	"github.com/gosignal/audiograph/bus"
	"github.com/gosignal/audiograph/lock"
	"github.com/gosignal/audiograph/param"
)

const maxChannelsPerContext = 32

// Graph owns every live node (§3 Graph, §9 "owner→child arena
// allocation"): Input and Output never hold a Node pointer, only a NodeID
// plus index, resolved through this arena.
type Graph struct {
	mu          sync.Mutex
	nodes       map[NodeID]Node
	nextID      uint64
	destination Node

	automaticPull         map[NodeID]Node
	automaticPullSnapshot []Node
	automaticPullDirty    bool

	markedForDeletion map[NodeID]Node
	pendingDelete     map[NodeID]Node

	dirtyJunctions  lock.Queue
	finishedSources lock.Queue

	currentRC *RenderContext
}

func newGraph() *Graph {
	return &Graph{
		nodes:             make(map[NodeID]Node),
		automaticPull:     make(map[NodeID]Node),
		markedForDeletion: make(map[NodeID]Node),
		pendingDelete:     make(map[NodeID]Node),
	}
}

func (g *Graph) node(id NodeID) Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodes[id]
}

func (g *Graph) nodeInterpretation(id NodeID) bus.Interpretation {
	if n := g.node(id); n != nil {
		return n.Base().ChannelInterpretation()
	}
	return bus.Speakers
}

func (g *Graph) resolveOutput(k portKey) *Output {
	n := g.node(k.node)
	if n == nil {
		return nil
	}
	outs := n.Base().outputs
	if k.index < 0 || k.index >= len(outs) {
		return nil
	}
	return outs[k.index]
}

// registerNode inserts a freshly constructed node into the arena (§4.A
// "inserted into the context's referenced-nodes list on first
// connection" — here done eagerly at construction for simplicity, since
// the distinction does not affect observable behavior once refcounts
// govern liveness).
func (g *Graph) registerNode(n Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[n.ID()] = n
}

func (g *Graph) nextNodeID() NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	return NodeID(g.nextID)
}

// wouldCycle reports whether connecting src (upstream) into dst
// (downstream) would create a cycle. That happens iff src's owner is
// already reachable downstream of dst's owner, which a forward walk over
// consumer inputs starting at dst's owner checks.
func (g *Graph) wouldCycle(dstInput *Input, srcOutput *Output) bool {
	target := srcOutput.owner
	visited := make(map[NodeID]bool)
	var walk func(id NodeID) bool
	walk = func(id NodeID) bool {
		if id == target {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		n := g.node(id)
		if n == nil {
			return false
		}
		for _, out := range n.Base().outputs {
			out.mu.Lock()
			consumers := make([]*Input, 0, len(out.consumerInputs))
			for in := range out.consumerInputs {
				consumers = append(consumers, in)
			}
			out.mu.Unlock()
			for _, in := range consumers {
				if walk(in.owner) {
					return true
				}
			}
		}
		return false
	}
	return walk(dstInput.owner)
}

// Connect wires src into dst (§4.A connect(destInput, sourceOutput)):
// idempotent, requires the Graph lock, rejects cycles and connections
// that would exceed maxChannelsPerContext.
func (g *Graph) Connect(tok lock.GraphToken, dst *Input, src *Output) error {
	if src.channelCount > maxChannelsPerContext {
		return NewConditionError(BadConnection, "source channel count %d exceeds maxChannelsPerContext", src.channelCount)
	}
	if dst.isConnected(src) {
		return nil
	}
	if g.wouldCycle(dst, src) {
		return NewConditionError(BadConnection, "connect would create a cycle")
	}
	if dst.connect(tok, src) {
		src.addConsumerInput(dst)
		if dstNode := g.node(dst.owner); dstNode != nil {
			dstNode.Base().connectionRefCount++
		}
		g.dirtyJunctions.Push(lock.OpFunc(func() { dst.flush() }))
	}
	return nil
}

// Disconnect removes src from dst's live connection set (§4.A disconnect).
func (g *Graph) Disconnect(tok lock.GraphToken, dst *Input, src *Output) {
	if !dst.isConnected(src) {
		return
	}
	if dst.disconnect(tok, src) {
		src.removeConsumerInput(dst)
		if dstNode := g.node(dst.owner); dstNode != nil {
			dstNode.Base().connectionRefCount--
		}
		g.dirtyJunctions.Push(lock.OpFunc(func() { dst.flush() }))
	}
}

// ConnectParam wires an audio-rate modulator output into p (§4.A
// connectParam).
func (g *Graph) ConnectParam(_ lock.GraphToken, p *param.Param, src *Output) {
	p.ConnectModulator(src)
	src.connectParam(p)
}

// DisconnectParam removes a previously connected modulator.
func (g *Graph) DisconnectParam(_ lock.GraphToken, p *param.Param, src *Output) {
	p.DisconnectModulator(src)
	src.disconnectParam(p)
}

// DisconnectAllFrom removes every connection whose source is n's outputs.
func (g *Graph) DisconnectAllFrom(tok lock.GraphToken, n Node) {
	for _, out := range n.Base().outputs {
		out.mu.Lock()
		consumers := make([]*Input, 0, len(out.consumerInputs))
		for in := range out.consumerInputs {
			consumers = append(consumers, in)
		}
		out.mu.Unlock()
		for _, in := range consumers {
			g.Disconnect(tok, in, out)
		}
	}
}

// DisconnectAllTo removes every connection feeding into n's inputs.
func (g *Graph) DisconnectAllTo(tok lock.GraphToken, n Node) {
	for _, in := range n.Base().inputs {
		in.mu.Lock()
		keys := make([]portKey, 0, len(in.liveConnections))
		for k := range in.liveConnections {
			keys = append(keys, k)
		}
		in.mu.Unlock()
		for _, k := range keys {
			if out := g.resolveOutput(k); out != nil {
				g.Disconnect(tok, in, out)
			}
		}
	}
}

// AddAutomaticPullNode registers n to be pulled every quantum even though
// its output may have no consumers (analysers, recorders).
func (g *Graph) AddAutomaticPullNode(_ lock.GraphToken, n Node) {
	g.mu.Lock()
	g.automaticPull[n.ID()] = n
	g.automaticPullDirty = true
	g.mu.Unlock()
}

// RemoveAutomaticPullNode unregisters n.
func (g *Graph) RemoveAutomaticPullNode(_ lock.GraphToken, n Node) {
	g.mu.Lock()
	delete(g.automaticPull, n.ID())
	g.automaticPullDirty = true
	g.mu.Unlock()
}

// preRenderFlush runs the two pre-render tasks from §4.A, under the
// Render lock.
func (g *Graph) preRenderFlush(_ lock.RenderToken) {
	g.dirtyJunctions.Drain()

	g.mu.Lock()
	if g.automaticPullDirty {
		snapshot := make([]Node, 0, len(g.automaticPull))
		for _, n := range g.automaticPull {
			snapshot = append(snapshot, n)
		}
		g.automaticPullSnapshot = snapshot
		g.automaticPullDirty = false
	}
	g.mu.Unlock()
}

// pullAutomaticNodes processes every registered automatic-pull node
// (§4.A: analysers, recorders, and other tap nodes whose output has no
// graph consumer still run every quantum). Called from RenderQuantum
// after the destination has been pulled.
func (g *Graph) pullAutomaticNodes(rc *RenderContext, frames int) {
	g.mu.Lock()
	snapshot := g.automaticPullSnapshot
	g.mu.Unlock()
	for _, n := range snapshot {
		processIfNecessary(n, rc, frames)
	}
}

// postRenderTasks runs the post-render tasks from §4.A: it drains the
// finished-sources queue, moves marked nodes whose refcounts are both zero
// into pendingDelete, and drains the dirty-junction queue again. It posts
// no main-thread task; pending nodes leave the graph only when a caller
// invokes DrainPendingDelete.
func (g *Graph) postRenderTasks(_ lock.RenderToken) {
	g.finishedSources.Drain()

	g.mu.Lock()
	for id, n := range g.markedForDeletion {
		b := n.Base()
		if b.normalRefCount == 0 && b.connectionRefCount == 0 {
			g.pendingDelete[id] = n
			delete(g.markedForDeletion, id)
		}
	}
	g.mu.Unlock()

	g.dirtyJunctions.Drain()
}

// DrainPendingDelete returns and clears the pendingDelete set and removes
// those nodes from the graph. Nothing in the render path calls it; the
// owner calls it under the Graph lock.
func (g *Graph) DrainPendingDelete(_ lock.GraphToken) []Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Node, 0, len(g.pendingDelete))
	for id, n := range g.pendingDelete {
		out = append(out, n)
		delete(g.nodes, id)
		delete(g.pendingDelete, id)
	}
	return out
}

// markForDeletionIfUnreferenced moves n into the markedForDeletion set once both
// refcounts have dropped. Safe to call from any thread; actual removal
// from the live node map happens only via DrainPendingDelete.
func (g *Graph) markForDeletionIfUnreferenced(n Node) {
	b := n.Base()
	if b.normalRefCount == 0 && b.connectionRefCount == 0 && !b.markedForDeletion {
		b.markedForDeletion = true
		g.mu.Lock()
		g.markedForDeletion[n.ID()] = n
		g.mu.Unlock()
	}
}
