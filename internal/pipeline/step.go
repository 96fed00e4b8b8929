package pipeline

import "context"

// DefaultMaxRetries is the number of extra attempts a step gets when it
// does not implement Retrier.
const DefaultMaxRetries = 1

// Step is one unit of pipeline work. The driver does not know what a step
// does internally; it only threads the shared context through and inspects
// the returned Result.
type Step interface {
	Name() string
	Execute(ctx context.Context, pc *Context) Result
}

// Skipper is optionally implemented by steps that can be omitted entirely
// for some contexts. A skipped step emits no events and is not retried.
type Skipper interface {
	CanSkip(pc *Context) bool
}

// Policy describes how the driver treats a step's recoverable failures.
type Policy struct {
	// Retryable gates retrying altogether.
	Retryable bool
	// MaxRetries is the number of extra attempts after the first one.
	MaxRetries int
}

// Retrier is optionally implemented by steps that want a non-default retry
// policy.
type Retrier interface {
	Retry() Policy
}

// policyFor resolves a step's retry policy, falling back to the default of
// one extra attempt.
func policyFor(step Step) Policy {
	if r, ok := step.(Retrier); ok {
		return r.Retry()
	}
	return Policy{Retryable: true, MaxRetries: DefaultMaxRetries}
}
