// Package console provides the console logging observer: every bus event is
// written to the structured log, which is the default way to watch a run.
package console

import (
	"log/slog"

	"github.com/vk/runflowgo/internal/event"
	"github.com/vk/runflowgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	logger *slog.Logger
}

// NewModule creates the console module. A nil logger falls back to the
// default global logger.
func NewModule(logger *slog.Logger) *Module {
	if logger == nil {
		logger = slog.Default()
	}
	return &Module{logger: logger}
}

// Register registers the console observer with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterObserver(&observer{logger: m.logger})
}

type observer struct {
	logger *slog.Logger
}

// Attach subscribes to the full event stream and returns the detach function.
func (o *observer) Attach(bus *event.Bus) func() {
	sub := bus.SubscribeAll(o.handle)
	return func() { bus.Unsubscribe(sub) }
}

// handle logs one event. The common fields go first; a few kinds get their
// interesting details pulled out.
func (o *observer) handle(e event.Event) {
	logger := o.logger.With("kind", e.Kind(), "run_id", e.EventRunID())
	switch ev := e.(type) {
	case event.RunStatusChanged:
		logger.Info("Run status changed.", "from", ev.OldStatus, "to", ev.NewStatus, "reason", ev.Reason)
	case event.StepStarted:
		logger.Info("Step started.", "step", ev.StepName, "attempt", ev.Attempt)
	case event.StepCompleted:
		logger.Info("Step completed.", "step", ev.StepName, "duration_seconds", ev.DurationSeconds)
	case event.StepFailed:
		logger.Warn("Step failed.", "step", ev.StepName, "error", ev.Err)
	case event.NodeFailed:
		logger.Warn("Workflow node failed.", "node_id", ev.NodeID, "error", ev.Err)
	default:
		logger.Info("Event observed.")
	}
}
