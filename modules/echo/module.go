// Package echo provides a trivial node handler that reflects its input back
// annotated with the categories it was dispatched with. It exists so hosts
// and integration tests can run a workflow end to end without an external
// solving collaborator.
package echo

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/runflowgo/internal/registry"
	"github.com/vk/runflowgo/internal/workflow"
)

// HandlerName is the name the echo handler is registered under.
const HandlerName = "echo"

// Module implements the registry.Module interface for this package.
type Module struct{}

// NewModule creates the echo module.
func NewModule() *Module {
	return &Module{}
}

// Register registers the echo node handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterNodeHandler(HandlerName, workflow.SolveFunc(solve))
}

func solve(ctx context.Context, input string, categories []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s [%s]", input, strings.Join(categories, ", ")), nil
}
