package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vk/runflowgo/internal/ctxlog"
	"github.com/vk/runflowgo/internal/event"
)

// ErrCycle is returned by Execute when the graph cannot be topologically
// ordered. It is reported before any node runs.
var ErrCycle = errors.New("workflow graph contains a cycle")

// defaultNodeTimeout bounds one node handler call when no option overrides it.
const defaultNodeTimeout = 5 * time.Minute

// Scheduler executes a node graph in dependency order. Nodes run strictly
// one at a time even when they share no dependency; that sequential behavior
// is a deliberate, tested property of this scheduler, not an accident.
type Scheduler struct {
	nodes      map[string]*nodeState
	order      []string
	handler    NodeHandler
	categories CategoryMap
	timeout    time.Duration
	bus        *event.Bus
	runID      string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithCategories installs the node type to category mapping.
func WithCategories(m CategoryMap) Option {
	return func(s *Scheduler) { s.categories = m }
}

// WithNodeTimeout overrides the per-node deadline.
func WithNodeTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithBus publishes node progress events to the given bus.
func WithBus(bus *event.Bus) Option {
	return func(s *Scheduler) { s.bus = bus }
}

// WithRunID tags progress events with a run identifier.
func WithRunID(runID string) Option {
	return func(s *Scheduler) { s.runID = runID }
}

// NewScheduler builds the adjacency lists and in-degree counts for the
// declared nodes and connections. A connection referencing an unknown node
// is logged as a warning and ignored rather than failing construction.
func NewScheduler(ctx context.Context, nodes []Node, connections []Connection, handler NodeHandler, opts ...Option) *Scheduler {
	logger := ctxlog.FromContext(ctx)
	s := &Scheduler{
		nodes:   make(map[string]*nodeState, len(nodes)),
		handler: handler,
		timeout: defaultNodeTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, n := range nodes {
		if _, ok := s.nodes[n.ID]; ok {
			logger.Warn("Duplicate node id ignored.", "node_id", n.ID)
			continue
		}
		s.nodes[n.ID] = &nodeState{node: n, state: StatePending}
		s.order = append(s.order, n.ID)
	}

	for _, c := range connections {
		from, ok := s.nodes[c.From]
		if !ok {
			logger.Warn("Connection references unknown source node; ignored.", "from", c.From, "to", c.To)
			continue
		}
		to, ok := s.nodes[c.To]
		if !ok {
			logger.Warn("Connection references unknown destination node; ignored.", "from", c.From, "to", c.To)
			continue
		}
		from.next = append(from.next, c.To)
		to.prev = append(to.prev, c.From)
		to.indegree++
	}

	logger.Debug("Workflow graph built.", "node_count", len(s.nodes), "connection_count", len(connections))
	return s
}

// ExecutionOrder computes the topological order with Kahn's algorithm. The
// queue is seeded with the zero in-degree nodes in declaration order, which
// makes the result deterministic. It returns nil when the graph has a cycle.
func (s *Scheduler) ExecutionOrder() []string {
	indegree := make(map[string]int, len(s.nodes))
	for id, ns := range s.nodes {
		indegree[id] = ns.indegree
	}

	var queue []string
	for _, id := range s.order {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	sorted := make([]string, 0, len(s.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)
		for _, succ := range s.nodes[id].next {
			indegree[succ]--
			if indegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	if len(sorted) != len(s.nodes) {
		return nil
	}
	return sorted
}

// Execute runs every node in topological order and returns the node id to
// output map. On a cycle it marks every node's state error, executes
// nothing, and returns ErrCycle. A node timeout or handler error marks only
// that node: its message becomes the node's output and scheduling continues.
func (s *Scheduler) Execute(ctx context.Context) (map[string]string, error) {
	logger := ctxlog.FromContext(ctx)

	order := s.ExecutionOrder()
	if order == nil && len(s.nodes) > 0 {
		logger.Error("Cycle detected in workflow graph; aborting before execution.")
		for _, ns := range s.nodes {
			ns.state = StateError
		}
		return map[string]string{}, ErrCycle
	}

	logger.Info("🚀 Executing workflow.", "node_count", len(order))
	outputs := make(map[string]string, len(order))

	for _, id := range order {
		ns := s.nodes[id]
		input := s.inputFor(ns)
		cats := s.categories.For(ns.node.Type)

		ns.state = StateProcessing
		s.emit(event.NewNodeStarted(s.runID, id, ns.node.Type))
		logger.Debug("Node starting.", "node_id", id, "type", ns.node.Type, "categories", cats)

		start := time.Now()
		out, err := s.solve(ctx, id, input, cats)
		if err != nil {
			ns.state = StateError
			ns.output = err.Error()
			s.emit(event.NewNodeFailed(s.runID, id, err.Error()))
			logger.Warn("Node failed; continuing with remaining nodes.", "node_id", id, "error", err)
		} else {
			ns.state = StateCompleted
			ns.output = out
			s.emit(event.NewNodeCompleted(s.runID, id, time.Since(start).Seconds()))
			logger.Info("✅ Node finished.", "node_id", id, "duration", time.Since(start))
		}
		outputs[id] = ns.output
	}

	logger.Info("🏁 Workflow finished.", "node_count", len(order))
	return outputs, nil
}

// inputFor joins the outputs of a node's predecessors in declaration order,
// or falls back to the node's title for roots.
func (s *Scheduler) inputFor(ns *nodeState) string {
	if len(ns.prev) == 0 {
		return ns.node.Title
	}
	parts := make([]string, 0, len(ns.prev))
	for _, prevID := range ns.prev {
		parts = append(parts, s.nodes[prevID].output)
	}
	return strings.Join(parts, "\n")
}

// solve races the handler against the per-node deadline. On expiry the node
// is abandoned: the handler goroutine may keep working, but its result is
// discarded and the buffered channel lets it exit.
func (s *Scheduler) solve(ctx context.Context, nodeID, input string, categories []string) (string, error) {
	nctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type solveResult struct {
		out string
		err error
	}
	done := make(chan solveResult, 1)
	go func() {
		out, err := s.handler.Solve(nctx, input, categories)
		done <- solveResult{out: out, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("node %q handler: %w", nodeID, r.err)
		}
		return r.out, nil
	case <-nctx.Done():
		if errors.Is(nctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("node %q timed out after %s", nodeID, s.timeout)
		}
		return "", fmt.Errorf("node %q aborted: %w", nodeID, nctx.Err())
	}
}

// emit publishes a progress event when a bus is configured.
func (s *Scheduler) emit(e event.Event) {
	if s.bus != nil {
		s.bus.Emit(e)
	}
}

// NodeState returns the scheduling state of one node.
func (s *Scheduler) NodeState(id string) (State, bool) {
	ns, ok := s.nodes[id]
	if !ok {
		return "", false
	}
	return ns.state, true
}

// Output returns the resolved output of one node.
func (s *Scheduler) Output(id string) (string, bool) {
	ns, ok := s.nodes[id]
	if !ok {
		return "", false
	}
	return ns.output, true
}
