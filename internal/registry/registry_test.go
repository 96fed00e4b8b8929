package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/runflowgo/internal/config"
	"github.com/vk/runflowgo/internal/ctxlog"
	"github.com/vk/runflowgo/internal/event"
	"github.com/vk/runflowgo/internal/pipeline"
	"github.com/vk/runflowgo/internal/registry"
	"github.com/vk/runflowgo/internal/testutil"
	"github.com/vk/runflowgo/internal/workflow"
)

type noopStep struct{ name string }

func (s *noopStep) Name() string { return s.name }
func (s *noopStep) Execute(ctx context.Context, pc *pipeline.Context) pipeline.Result {
	return pipeline.Ok(nil)
}

var echoHandler = workflow.SolveFunc(func(ctx context.Context, input string, categories []string) (string, error) {
	return input, nil
})

func TestRegistry_NodeHandlers(t *testing.T) {
	r := registry.New()
	r.RegisterNodeHandler("echo", echoHandler)

	h, ok := r.NodeHandler("echo")
	require.True(t, ok)
	require.NotNil(t, h)

	_, ok = r.NodeHandler("missing")
	require.False(t, ok)

	require.PanicsWithValue(t, "node handler with name 'echo' already registered", func() {
		r.RegisterNodeHandler("echo", echoHandler)
	})
}

func TestRegistry_StepFactories(t *testing.T) {
	r := registry.New()
	r.RegisterStepFactory("noop", func() pipeline.Step { return &noopStep{name: "noop"} })

	step, err := r.NewStep("noop")
	require.NoError(t, err)
	require.Equal(t, "noop", step.Name())

	// Each call builds a fresh instance.
	other, err := r.NewStep("noop")
	require.NoError(t, err)
	require.NotSame(t, step, other)

	_, err = r.NewStep("missing")
	require.ErrorContains(t, err, "no step factory registered for 'missing'")

	require.Panics(t, func() {
		r.RegisterStepFactory("noop", func() pipeline.Step { return &noopStep{name: "noop"} })
	})
}

// countingObserver tracks attach and detach calls.
type countingObserver struct {
	attached int
	detached int
}

func (o *countingObserver) Attach(bus *event.Bus) func() {
	o.attached++
	return func() { o.detached++ }
}

func TestRegistry_Observers(t *testing.T) {
	r := registry.New()
	first := &countingObserver{}
	second := &countingObserver{}
	r.RegisterObserver(first)
	r.RegisterObserver(second)

	detach := r.AttachObservers(event.NewBus())
	require.Equal(t, 1, first.attached)
	require.Equal(t, 1, second.attached)
	require.Zero(t, first.detached)

	detach()
	require.Equal(t, 1, first.detached)
	require.Equal(t, 1, second.detached)
}

func TestRegistry_Validate(t *testing.T) {
	newWorkflow := func(handler string) *config.Workflow {
		return &config.Workflow{
			Name:    "w",
			Handler: handler,
			Nodes: []config.Node{
				{ID: "a", Type: "math", Title: "A"},
				{ID: "b", Type: "chemistry", Title: "B"},
			},
			Categories: map[string][]string{"math": {"algebra"}},
		}
	}

	t.Run("Registered Handler Passes", func(t *testing.T) {
		r := registry.New()
		r.RegisterNodeHandler("echo", echoHandler)
		require.NoError(t, r.Validate(context.Background(), newWorkflow("echo")))
	})

	t.Run("Missing Handler Fails", func(t *testing.T) {
		r := registry.New()
		err := r.Validate(context.Background(), newWorkflow("echo"))
		require.ErrorContains(t, err, "handler 'echo' is not registered")
	})

	t.Run("Empty Handler Fails", func(t *testing.T) {
		r := registry.New()
		err := r.Validate(context.Background(), newWorkflow(""))
		require.ErrorContains(t, err, "declares no handler")
	})

	t.Run("Unmapped Node Type Warns Only", func(t *testing.T) {
		r := registry.New()
		r.RegisterNodeHandler("echo", echoHandler)
		logger, buf := testutil.NewLogger()
		ctx := ctxlog.WithLogger(context.Background(), logger)

		require.NoError(t, r.Validate(ctx, newWorkflow("echo")))
		require.Contains(t, buf.String(), "no category mapping")
		require.Contains(t, buf.String(), "chemistry")
	})
}
