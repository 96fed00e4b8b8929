package workflow

import "context"

// NodeHandler solves one workflow node. The scheduler owns the deadline: the
// passed context is cancelled when the node's time budget expires, and a
// handler that keeps working past that point has its result discarded.
type NodeHandler interface {
	Solve(ctx context.Context, input string, categories []string) (string, error)
}

// SolveFunc adapts a plain function to the NodeHandler interface.
type SolveFunc func(ctx context.Context, input string, categories []string) (string, error)

// Solve implements NodeHandler.
func (f SolveFunc) Solve(ctx context.Context, input string, categories []string) (string, error) {
	return f(ctx, input, categories)
}
