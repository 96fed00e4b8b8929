package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vk/runflowgo/internal/config"
	"github.com/vk/runflowgo/internal/ctxlog"
	"github.com/vk/runflowgo/internal/event"
	"github.com/vk/runflowgo/internal/pipeline"
	"github.com/vk/runflowgo/internal/run"
	"github.com/vk/runflowgo/internal/workflow"
)

// Run executes one full run: the state machine is driven through
// Pending -> Analyzing -> Running while the preflight pipeline and then the
// workflow scheduler do the actual work, and is finalized from their outcome.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.cfg.HealthcheckPort > 0 {
		go a.startHealthcheckServer(a.cfg.HealthcheckPort)
	}

	detach := a.registry.AttachObservers(a.bus)
	defer detach()

	runID := a.cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	machine := run.NewMachine(runID, run.WithBus(a.bus), run.WithLogger(a.logger))
	a.bus.Emit(event.NewRunCreated(runID, a.cfg.RepoURL))
	a.logger.Info("🚀 Run created.", "run_id", runID, "workflow", a.model.Workflow.Name)

	if err := machine.StartAnalyzing(); err != nil {
		return err
	}

	pc := pipeline.NewContext(runID, a.cfg.RepoURL)
	preflight, err := a.preflightPipeline()
	if err != nil {
		_ = machine.MarkError(err.Error())
		return err
	}
	report := preflight.Run(ctx, pc)
	if !report.Success {
		_ = machine.MarkError(report.Err.Error())
		return fmt.Errorf("preflight failed: %w", report.Err)
	}
	a.logger.Debug("Preflight pipeline finished.", "steps_run", report.StepsRun)

	if err := machine.StartRunning(); err != nil {
		return err
	}

	outputs, sched, err := a.executeWorkflow(ctx, runID)
	if err != nil {
		_ = machine.MarkError(err.Error())
		return err
	}

	failed := 0
	for id := range outputs {
		if state, ok := sched.NodeState(id); ok && state == workflow.StateError {
			failed++
		}
	}
	if err := machine.Complete(failed == 0); err != nil {
		return err
	}

	a.printSummary(sched, outputs)
	a.logger.Info("🏁 Run finished.", "run_id", runID, "status", machine.Status(), "nodes", len(outputs), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d workflow nodes failed", failed, len(outputs))
	}
	return nil
}

// executeWorkflow builds the scheduler from the loaded model and runs it.
func (a *App) executeWorkflow(ctx context.Context, runID string) (map[string]string, *workflow.Scheduler, error) {
	wf := a.model.Workflow
	handler, ok := a.registry.NodeHandler(wf.Handler)
	if !ok {
		return nil, nil, fmt.Errorf("node handler '%s' is not registered", wf.Handler)
	}

	nodes, conns := translateGraph(wf)
	opts := []workflow.Option{
		workflow.WithCategories(wf.Categories),
		workflow.WithBus(a.bus),
		workflow.WithRunID(runID),
	}
	timeout := a.cfg.NodeTimeout
	if timeout == 0 {
		timeout = wf.NodeTimeout
	}
	if timeout > 0 {
		opts = append(opts, workflow.WithNodeTimeout(timeout))
	}

	sched := workflow.NewScheduler(ctx, nodes, conns, handler, opts...)
	outputs, err := sched.Execute(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("workflow execution: %w", err)
	}
	return outputs, sched, nil
}

// translateGraph converts config declarations into scheduler types.
func translateGraph(wf *config.Workflow) ([]workflow.Node, []workflow.Connection) {
	nodes := make([]workflow.Node, 0, len(wf.Nodes))
	for _, n := range wf.Nodes {
		nodes = append(nodes, workflow.Node{ID: n.ID, Type: n.Type, Title: n.Title})
	}
	conns := make([]workflow.Connection, 0, len(wf.Connections))
	for _, c := range wf.Connections {
		conns = append(conns, workflow.Connection{From: c.From, To: c.To})
	}
	return nodes, conns
}

// printSummary writes the per-node outcomes to the host's output writer in
// declaration order.
func (a *App) printSummary(sched *workflow.Scheduler, outputs map[string]string) {
	for _, n := range a.model.Workflow.Nodes {
		if _, ok := outputs[n.ID]; !ok {
			continue
		}
		state, _ := sched.NodeState(n.ID)
		fmt.Fprintf(a.outW, "%s [%s]\n%s\n\n", n.ID, state, outputs[n.ID])
	}
}
