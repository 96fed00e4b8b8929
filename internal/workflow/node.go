package workflow

// State tracks a node through scheduling.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateError      State = "error"
)

// Node is one declared unit of workflow-graph work. The Title seeds root
// nodes that have no predecessor output to consume.
type Node struct {
	ID    string
	Type  string
	Title string
}

// Connection is one directed edge: To consumes From's output.
type Connection struct {
	From string
	To   string
}

// nodeState is the scheduler's mutable view of one node: declaration-order
// adjacency, in-degree for the topological sort, and the resolved output.
type nodeState struct {
	node     Node
	next     []string
	prev     []string
	indegree int
	state    State
	output   string
}
