package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/runflowgo/internal/event"
	"github.com/vk/runflowgo/internal/pipeline"
	"github.com/vk/runflowgo/internal/testutil"
)

// scriptedStep returns one scripted result per attempt and records how often
// it ran. When the script is exhausted the last entry repeats.
type scriptedStep struct {
	name   string
	script []pipeline.Result
	calls  int
	onExec func(pc *pipeline.Context)
	skip   bool
}

func (s *scriptedStep) Name() string { return s.name }

func (s *scriptedStep) Execute(ctx context.Context, pc *pipeline.Context) pipeline.Result {
	if s.onExec != nil {
		s.onExec(pc)
	}
	idx := s.calls
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.calls++
	return s.script[idx]
}

// skippableStep wraps scriptedStep with the optional skip capability.
type skippableStep struct {
	scriptedStep
}

func (s *skippableStep) CanSkip(pc *pipeline.Context) bool {
	return s.skip
}

// policyStep carries an explicit retry policy.
type policyStep struct {
	scriptedStep
	policy pipeline.Policy
}

func (s *policyStep) Retry() pipeline.Policy { return s.policy }

func newHarness(t *testing.T) (*event.Bus, *testutil.Recorder) {
	t.Helper()
	bus := event.NewBus()
	rec := &testutil.Recorder{}
	t.Cleanup(rec.Attach(bus))
	return bus, rec
}

func ok() pipeline.Result { return pipeline.Ok(nil) }

func failTwiceThenOk() []pipeline.Result {
	return []pipeline.Result{
		pipeline.Fail(errors.New("flaky")),
		pipeline.Fail(errors.New("flaky")),
		pipeline.Ok(nil),
	}
}

func TestPipeline_AllStepsSucceed(t *testing.T) {
	bus, rec := newHarness(t)
	a := &scriptedStep{name: "a", script: []pipeline.Result{ok()}}
	b := &scriptedStep{name: "b", script: []pipeline.Result{ok()}}

	p := pipeline.New(pipeline.WithBus(bus)).AddStep(a).AddStep(b)
	pc := pipeline.NewContext("run-1", "")
	report := p.Run(context.Background(), pc)

	require.True(t, report.Success)
	require.NoError(t, report.Err)
	require.Equal(t, 2, report.StepsRun)
	require.False(t, report.Stopped)

	require.Equal(t, []event.Kind{
		event.KindStepStarted, event.KindStepCompleted,
		event.KindStepStarted, event.KindStepCompleted,
	}, rec.Kinds())

	require.Len(t, pc.Records, 2)
	require.Equal(t, "a", pc.Records[0].Step)
	require.Equal(t, 1, pc.Records[0].Attempts)
	require.NoError(t, pc.Records[0].Err)
}

func TestPipeline_SkippedStepIsInvisible(t *testing.T) {
	bus, rec := newHarness(t)
	a := &scriptedStep{name: "a", script: []pipeline.Result{ok()}}
	b := &skippableStep{scriptedStep: scriptedStep{name: "b", script: []pipeline.Result{ok()}, skip: true}}
	c := &scriptedStep{name: "c", script: []pipeline.Result{ok()}}

	p := pipeline.New(pipeline.WithBus(bus)).AddStep(a).AddStep(b).AddStep(c)
	pc := pipeline.NewContext("run-1", "")
	report := p.Run(context.Background(), pc)

	require.True(t, report.Success)
	require.Equal(t, 2, report.StepsRun)
	require.Equal(t, 0, b.calls)

	// The skipped step emits nothing and leaves no record.
	for _, e := range rec.Events() {
		switch ev := e.(type) {
		case event.StepStarted:
			require.NotEqual(t, "b", ev.StepName)
		case event.StepCompleted:
			require.NotEqual(t, "b", ev.StepName)
		}
	}
	require.Len(t, pc.Records, 2)
}

func TestPipeline_RecoverableFailureRetries(t *testing.T) {
	t.Run("Retry Then Succeed", func(t *testing.T) {
		bus, rec := newHarness(t)
		a := &scriptedStep{name: "a", script: []pipeline.Result{pipeline.Fail(errors.New("flaky")), ok()}}

		p := pipeline.New(pipeline.WithBus(bus)).AddStep(a)
		pc := pipeline.NewContext("run-1", "")
		report := p.Run(context.Background(), pc)

		require.True(t, report.Success)
		require.Equal(t, 2, a.calls)

		started := rec.OfKind(event.KindStepStarted)
		require.Len(t, started, 2)
		require.Equal(t, 1, started[0].(event.StepStarted).Attempt)
		require.Equal(t, 2, started[1].(event.StepStarted).Attempt)
		require.Len(t, rec.OfKind(event.KindStepCompleted), 1)
		require.Empty(t, rec.OfKind(event.KindStepFailed))

		require.Equal(t, 2, pc.Records[0].Attempts)
	})

	t.Run("Retries Exhausted", func(t *testing.T) {
		bus, rec := newHarness(t)
		// Default policy allows one extra attempt, so a step failing
		// recoverably forever runs exactly twice.
		a := &scriptedStep{name: "a", script: []pipeline.Result{pipeline.Fail(errors.New("flaky"))}}
		b := &scriptedStep{name: "b", script: []pipeline.Result{ok()}}

		p := pipeline.New(pipeline.WithBus(bus)).AddStep(a).AddStep(b)
		pc := pipeline.NewContext("run-1", "")
		report := p.Run(context.Background(), pc)

		require.False(t, report.Success)
		require.ErrorContains(t, report.Err, `step "a" failed`)
		require.Equal(t, 2, a.calls)
		require.Equal(t, 0, b.calls, "later steps must not run after an aborting failure")

		require.Len(t, rec.OfKind(event.KindStepStarted), 2)
		require.Len(t, rec.OfKind(event.KindStepFailed), 1)
		require.Empty(t, rec.OfKind(event.KindStepCompleted))

		require.Len(t, pc.Records, 1)
		require.Error(t, pc.Records[0].Err)
		require.Equal(t, 2, pc.Records[0].Attempts)
	})
}

func TestPipeline_PermanentFailureDoesNotRetry(t *testing.T) {
	bus, rec := newHarness(t)
	a := &scriptedStep{name: "a", script: []pipeline.Result{pipeline.FailPermanent(errors.New("bad input"))}}

	p := pipeline.New(pipeline.WithBus(bus)).AddStep(a)
	report := p.Run(context.Background(), pipeline.NewContext("run-1", ""))

	require.False(t, report.Success)
	require.Equal(t, 1, a.calls)
	require.Len(t, rec.OfKind(event.KindStepStarted), 1)
	require.Len(t, rec.OfKind(event.KindStepFailed), 1)
}

func TestPipeline_CustomRetryPolicy(t *testing.T) {
	t.Run("More Retries", func(t *testing.T) {
		bus, _ := newHarness(t)
		a := &policyStep{
			scriptedStep: scriptedStep{name: "a", script: failTwiceThenOk()},
			policy:       pipeline.Policy{Retryable: true, MaxRetries: 2},
		}

		report := pipeline.New(pipeline.WithBus(bus)).AddStep(a).Run(context.Background(), pipeline.NewContext("run-1", ""))
		require.True(t, report.Success)
		require.Equal(t, 3, a.calls)
	})

	t.Run("Retries Disabled", func(t *testing.T) {
		bus, _ := newHarness(t)
		a := &policyStep{
			scriptedStep: scriptedStep{name: "a", script: []pipeline.Result{pipeline.Fail(errors.New("flaky"))}},
			policy:       pipeline.Policy{Retryable: false},
		}

		report := pipeline.New(pipeline.WithBus(bus)).AddStep(a).Run(context.Background(), pipeline.NewContext("run-1", ""))
		require.False(t, report.Success)
		require.Equal(t, 1, a.calls)
	})
}

func TestPipeline_AdvisoryStop(t *testing.T) {
	bus, rec := newHarness(t)
	a := &scriptedStep{name: "a", script: []pipeline.Result{ok()}, onExec: func(pc *pipeline.Context) {
		pc.RequestStop("awaiting approval")
	}}
	b := &scriptedStep{name: "b", script: []pipeline.Result{ok()}}

	p := pipeline.New(pipeline.WithBus(bus)).AddStep(a).AddStep(b)
	report := p.Run(context.Background(), pipeline.NewContext("run-1", ""))

	// The requesting step still finishes; the stop takes effect before the
	// next step and is not a failure.
	require.True(t, report.Success)
	require.True(t, report.Stopped)
	require.Equal(t, "awaiting approval", report.StopReason)
	require.Equal(t, 1, report.StepsRun)
	require.Equal(t, 0, b.calls)
	require.Len(t, rec.OfKind(event.KindStepCompleted), 1)
}

func TestPipeline_EmptyPipeline(t *testing.T) {
	bus, rec := newHarness(t)
	report := pipeline.New(pipeline.WithBus(bus)).Run(context.Background(), pipeline.NewContext("run-1", ""))
	require.True(t, report.Success)
	require.Zero(t, report.StepsRun)
	require.Empty(t, rec.Events())
}

func TestContext_Metadata(t *testing.T) {
	pc := pipeline.NewContext("run-1", "https://example.com/repo.git")
	require.Equal(t, "run-1", pc.RunID)
	require.Equal(t, "https://example.com/repo.git", pc.RepoURL)

	_, ok := pc.Meta("missing")
	require.False(t, ok)

	pc.SetMeta("repo.kind", "git")
	v, ok := pc.Meta("repo.kind")
	require.True(t, ok)
	require.Equal(t, "git", v)

	// Keys can be overwritten but never removed.
	pc.SetMeta("repo.kind", "hg")
	v, _ = pc.Meta("repo.kind")
	require.Equal(t, "hg", v)
	require.ElementsMatch(t, []string{"repo.kind"}, pc.MetaKeys())

	pc.SetMeta("node.count", 3)
	require.ElementsMatch(t, []string{"repo.kind", "node.count"}, pc.MetaKeys())
}

func TestResult_Constructors(t *testing.T) {
	okRes := pipeline.Ok(map[string]any{"files": 3})
	require.NoError(t, okRes.Err)
	require.Equal(t, 3, okRes.Data["files"])

	err := errors.New("boom")
	rec := pipeline.Fail(err)
	require.ErrorIs(t, rec.Err, err)
	require.True(t, rec.Recoverable)

	perm := pipeline.FailPermanent(err)
	require.ErrorIs(t, perm.Err, err)
	require.False(t, perm.Recoverable)
}
