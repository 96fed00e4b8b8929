package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/runflowgo/internal/ctxlog"
	"github.com/vk/runflowgo/internal/event"
)

// Report is the outcome of one pipeline run. StepsRun counts executed steps
// only; skipped steps do not appear. Stopped is set when the driver honored
// an advisory stop request between steps; an advisory stop is not a failure.
type Report struct {
	Success    bool
	Err        error
	StepsRun   int
	Stopped    bool
	StopReason string
}

// Pipeline executes registered steps strictly sequentially within one call
// to Run. It provides no internal parallelism; a step that performs I/O is
// responsible for its own blocking behavior.
type Pipeline struct {
	steps []Step
	bus   *event.Bus
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBus routes step lifecycle events to a specific bus instead of the
// process-wide default.
func WithBus(bus *event.Bus) Option {
	return func(p *Pipeline) { p.bus = bus }
}

// New creates an empty pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.bus == nil {
		p.bus = event.Default()
	}
	return p
}

// AddStep appends a step and returns the pipeline for chaining.
func (p *Pipeline) AddStep(step Step) *Pipeline {
	p.steps = append(p.steps, step)
	return p
}

// Run executes the steps in registration order against the shared context.
//
// Per step: a skippable step is omitted entirely, with no events and no
// retries. Otherwise every attempt emits StepStarted with its attempt
// number, success emits StepCompleted, and an unrecovered failure emits
// StepFailed and aborts the pipeline. Before invoking each step the driver
// honors the context's advisory ShouldStop flag and ends the run early
// without failing it.
func (p *Pipeline) Run(ctx context.Context, pc *Context) Report {
	logger := ctxlog.FromContext(ctx).With("run_id", pc.RunID)
	report := Report{Success: true}

	for _, step := range p.steps {
		if pc.ShouldStop {
			logger.Info("Pipeline stopping early on request.", "reason", pc.StopReason)
			report.Stopped = true
			report.StopReason = pc.StopReason
			return report
		}

		if s, ok := step.(Skipper); ok && s.CanSkip(pc) {
			logger.Debug("Skipping step.", "step", step.Name())
			continue
		}

		if err := p.runStep(ctx, pc, step, &report); err != nil {
			report.Success = false
			report.Err = err
			return report
		}
	}
	return report
}

// runStep drives one step through its attempts. It returns a non-nil error
// only for an unrecovered failure, which aborts the pipeline.
func (p *Pipeline) runStep(ctx context.Context, pc *Context, step Step, report *Report) error {
	logger := ctxlog.FromContext(ctx).With("run_id", pc.RunID, "step", step.Name())
	policy := policyFor(step)
	start := time.Now()

	for attempt := 1; ; attempt++ {
		p.bus.Emit(event.NewStepStarted(pc.RunID, step.Name(), attempt))
		logger.Debug("Step attempt starting.", "attempt", attempt)

		res := step.Execute(ctx, pc)
		if res.Err == nil {
			elapsed := time.Since(start)
			p.bus.Emit(event.NewStepCompleted(pc.RunID, step.Name(), elapsed.Seconds()))
			pc.Records = append(pc.Records, StepRecord{Step: step.Name(), Attempts: attempt, Duration: elapsed})
			report.StepsRun++
			logger.Info("✅ Step finished.", "attempt", attempt, "duration", elapsed)
			return nil
		}

		if res.Recoverable && policy.Retryable && attempt <= policy.MaxRetries {
			logger.Warn("Step failed, retrying.", "attempt", attempt, "error", res.Err)
			continue
		}

		elapsed := time.Since(start)
		p.bus.Emit(event.NewStepFailed(pc.RunID, step.Name(), res.Err.Error()))
		pc.Records = append(pc.Records, StepRecord{Step: step.Name(), Attempts: attempt, Duration: elapsed, Err: res.Err})
		report.StepsRun++
		logger.Error("Step failed; aborting pipeline.", "attempt", attempt, "error", res.Err)
		return fmt.Errorf("step %q failed: %w", step.Name(), res.Err)
	}
}
