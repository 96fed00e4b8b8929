package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vk/runflowgo/internal/config"
	"github.com/vk/runflowgo/internal/ctxlog"
	"github.com/vk/runflowgo/internal/event"
	"github.com/vk/runflowgo/internal/pipeline"
	"github.com/vk/runflowgo/internal/workflow"
)

// Module is the interface all pluggable modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Observer is a bus consumer contributed by a module. Attach subscribes it
// and returns the matching detach function.
type Observer interface {
	Attach(bus *event.Bus) (detach func())
}

// StepFactory builds a fresh pipeline step instance.
type StepFactory func() pipeline.Step

// Registry holds the registered handlers, step factories, and observers for
// a single application instance.
type Registry struct {
	NodeHandlerRegistry map[string]workflow.NodeHandler
	StepFactoryRegistry map[string]StepFactory
	observers           []Observer
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		NodeHandlerRegistry: make(map[string]workflow.NodeHandler),
		StepFactoryRegistry: make(map[string]StepFactory),
	}
}

// RegisterNodeHandler registers a named node handler. Registering the same
// name twice is a programmer error and panics.
func (r *Registry) RegisterNodeHandler(name string, h workflow.NodeHandler) {
	if _, exists := r.NodeHandlerRegistry[name]; exists {
		panic(fmt.Sprintf("node handler with name '%s' already registered", name))
	}
	slog.Debug("Registering node handler.", "name", name)
	r.NodeHandlerRegistry[name] = h
}

// RegisterStepFactory registers a named pipeline step factory. Registering
// the same name twice is a programmer error and panics.
func (r *Registry) RegisterStepFactory(name string, f StepFactory) {
	if _, exists := r.StepFactoryRegistry[name]; exists {
		panic(fmt.Sprintf("step factory with name '%s' already registered", name))
	}
	slog.Debug("Registering step factory.", "name", name)
	r.StepFactoryRegistry[name] = f
}

// RegisterObserver adds a bus observer to be attached by the host.
func (r *Registry) RegisterObserver(o Observer) {
	r.observers = append(r.observers, o)
}

// NodeHandler looks up a registered handler by name.
func (r *Registry) NodeHandler(name string) (workflow.NodeHandler, bool) {
	h, ok := r.NodeHandlerRegistry[name]
	return h, ok
}

// NewStep builds a fresh step from a registered factory.
func (r *Registry) NewStep(name string) (pipeline.Step, error) {
	f, ok := r.StepFactoryRegistry[name]
	if !ok {
		return nil, fmt.Errorf("no step factory registered for '%s'", name)
	}
	return f(), nil
}

// AttachObservers subscribes every registered observer to the bus and
// returns a single detach function covering all of them.
func (r *Registry) AttachObservers(bus *event.Bus) func() {
	detaches := make([]func(), 0, len(r.observers))
	for _, o := range r.observers {
		detaches = append(detaches, o.Attach(bus))
	}
	return func() {
		for _, detach := range detaches {
			detach()
		}
	}
}

// Validate checks a loaded workflow against the registry: the named handler
// must exist, and every node type without a category mapping is reported as
// a warning since it will fall back to the default categories.
func (r *Registry) Validate(ctx context.Context, wf *config.Workflow) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	if wf.Handler == "" {
		errs = append(errs, "workflow declares no handler")
	} else if _, ok := r.NodeHandlerRegistry[wf.Handler]; !ok {
		errs = append(errs, fmt.Sprintf("workflow handler '%s' is not registered", wf.Handler))
	}

	for _, n := range wf.Nodes {
		if _, ok := wf.Categories[n.Type]; !ok {
			logger.Warn("Node type has no category mapping; default categories apply.", "node_id", n.ID, "type", n.Type)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
