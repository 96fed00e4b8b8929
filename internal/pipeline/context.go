package pipeline

import "time"

// StepRecord summarizes one executed step for the context's result list.
type StepRecord struct {
	Step     string
	Attempts int
	Duration time.Duration
	Err      error
}

// Context is the unit of state threaded through all steps of one run. It is
// exclusively owned by the pipeline driver and the currently executing step;
// it must never be shared across concurrent pipeline runs.
type Context struct {
	RunID          string
	RepoURL        string
	RepoPath       string
	RepositoryType string
	StrategyName   string

	// DocFiles lists discovered documentation paths in discovery order.
	DocFiles []string
	// Commands holds parsed commands in discovery order.
	Commands []ParsedCommand
	// Records accumulates one entry per executed (non-skipped) step.
	Records []StepRecord

	metadata map[string]any

	// ShouldStop and StopReason are advisory flags a step may set to ask
	// the driver to stop before the next step. AwaitingUserInput marks a
	// run parked on external input.
	ShouldStop        bool
	StopReason        string
	AwaitingUserInput bool
}

// NewContext creates a context scoped to one run.
func NewContext(runID, repoURL string) *Context {
	return &Context{
		RunID:    runID,
		RepoURL:  repoURL,
		metadata: make(map[string]any),
	}
}

// SetMeta writes one metadata entry. Metadata is append-only for the
// duration of a run: keys can be overwritten but never deleted.
func (pc *Context) SetMeta(key string, value any) {
	if pc.metadata == nil {
		pc.metadata = make(map[string]any)
	}
	pc.metadata[key] = value
}

// Meta reads one metadata entry.
func (pc *Context) Meta(key string) (any, bool) {
	v, ok := pc.metadata[key]
	return v, ok
}

// MetaKeys returns the metadata keys currently present, in no particular order.
func (pc *Context) MetaKeys() []string {
	keys := make([]string, 0, len(pc.metadata))
	for k := range pc.metadata {
		keys = append(keys, k)
	}
	return keys
}

// RequestStop sets the advisory stop flags. The driver checks them before
// invoking each subsequent step.
func (pc *Context) RequestStop(reason string) {
	pc.ShouldStop = true
	pc.StopReason = reason
}
