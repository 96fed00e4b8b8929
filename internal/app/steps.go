package app

import (
	"context"
	"fmt"

	"github.com/vk/runflowgo/internal/pipeline"
	"github.com/vk/runflowgo/internal/workflow"
)

// Preflight step factory names.
const (
	stepValidateGraph = "workflow.validate-graph"
	stepAnnotateRepo  = "run.annotate-repo"
)

// registerPreflightSteps contributes the host's own step factories so the
// preflight pipeline is assembled through the registry like any other steps.
func (a *App) registerPreflightSteps() {
	a.registry.RegisterStepFactory(stepValidateGraph, func() pipeline.Step {
		return &validateGraphStep{app: a}
	})
	a.registry.RegisterStepFactory(stepAnnotateRepo, func() pipeline.Step {
		return &annotateRepoStep{}
	})
}

// preflightPipeline builds the pipeline run before the workflow executes.
func (a *App) preflightPipeline() (*pipeline.Pipeline, error) {
	p := pipeline.New(pipeline.WithBus(a.bus))
	for _, name := range []string{stepValidateGraph, stepAnnotateRepo} {
		step, err := a.registry.NewStep(name)
		if err != nil {
			return nil, err
		}
		p.AddStep(step)
	}
	return p, nil
}

// validateGraphStep rejects a workflow whose graph cannot be ordered. A
// cycle is a structural error the caller must fix, so the failure is
// permanent: retrying the same definition cannot succeed.
type validateGraphStep struct {
	app *App
}

func (s *validateGraphStep) Name() string { return stepValidateGraph }

func (s *validateGraphStep) Execute(ctx context.Context, pc *pipeline.Context) pipeline.Result {
	wf := s.app.model.Workflow
	nodes, conns := translateGraph(wf)
	sched := workflow.NewScheduler(ctx, nodes, conns, nil)
	order := sched.ExecutionOrder()
	if order == nil && len(nodes) > 0 {
		return pipeline.FailPermanent(fmt.Errorf("workflow %q: %w", wf.Name, workflow.ErrCycle))
	}
	pc.SetMeta("workflow.name", wf.Name)
	pc.SetMeta("workflow.node_count", len(nodes))
	return pipeline.Ok(nil)
}

// annotateRepoStep records repository coordinates in the context metadata.
// It is skipped entirely when no repository is configured.
type annotateRepoStep struct{}

func (s *annotateRepoStep) Name() string { return stepAnnotateRepo }

func (s *annotateRepoStep) CanSkip(pc *pipeline.Context) bool {
	return pc.RepoURL == ""
}

func (s *annotateRepoStep) Execute(ctx context.Context, pc *pipeline.Context) pipeline.Result {
	pc.SetMeta("repo.url", pc.RepoURL)
	return pipeline.Ok(map[string]any{"repo_url": pc.RepoURL})
}
