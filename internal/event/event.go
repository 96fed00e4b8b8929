package event

import "time"

// Kind classifies events in the run execution lifecycle.
type Kind string

const (
	// Run lifecycle events
	KindRunCreated       Kind = "run.created"
	KindRunStatusChanged Kind = "run.status_changed"

	// Pipeline step lifecycle events
	KindStepStarted   Kind = "step.started"
	KindStepCompleted Kind = "step.completed"
	KindStepFailed    Kind = "step.failed"

	// Command events, emitted by step implementations rather than the pipeline driver
	KindCommandQueued    Kind = "command.queued"
	KindCommandStarted   Kind = "command.started"
	KindCommandCompleted Kind = "command.completed"

	// Workflow scheduler progress events
	KindNodeStarted   Kind = "workflow.node.started"
	KindNodeCompleted Kind = "workflow.node.completed"
	KindNodeFailed    Kind = "workflow.node.failed"
)

// Event is an immutable record describing something that happened. Concrete
// event types are plain structs; they carry no behavior beyond the accessors
// below and are never mutated after creation.
type Event interface {
	// Kind returns the discriminator for this event.
	Kind() Kind
	// OccurredAt returns the creation timestamp.
	OccurredAt() time.Time
	// EventRunID returns the run this event belongs to, or "" for events
	// that are not scoped to a run.
	EventRunID() string
}

// RunCreated announces that a new run has been registered.
type RunCreated struct {
	RunID   string
	RepoURL string
	At      time.Time
}

// NewRunCreated builds a RunCreated event stamped with the current time.
func NewRunCreated(runID, repoURL string) RunCreated {
	return RunCreated{RunID: runID, RepoURL: repoURL, At: time.Now()}
}

func (e RunCreated) Kind() Kind            { return KindRunCreated }
func (e RunCreated) OccurredAt() time.Time { return e.At }
func (e RunCreated) EventRunID() string    { return e.RunID }

// RunStatusChanged records a legal state machine transition. Statuses are
// carried as plain strings so the bus stays independent of the run package.
type RunStatusChanged struct {
	RunID     string
	OldStatus string
	NewStatus string
	Reason    string
	At        time.Time
}

// NewRunStatusChanged builds a RunStatusChanged event stamped with the current time.
func NewRunStatusChanged(runID, oldStatus, newStatus, reason string) RunStatusChanged {
	return RunStatusChanged{RunID: runID, OldStatus: oldStatus, NewStatus: newStatus, Reason: reason, At: time.Now()}
}

func (e RunStatusChanged) Kind() Kind            { return KindRunStatusChanged }
func (e RunStatusChanged) OccurredAt() time.Time { return e.At }
func (e RunStatusChanged) EventRunID() string    { return e.RunID }

// StepStarted marks the beginning of one execution attempt of a pipeline
// step. Retries re-emit this event with an incremented attempt number.
type StepStarted struct {
	RunID    string
	StepName string
	Attempt  int
	At       time.Time
}

// NewStepStarted builds a StepStarted event stamped with the current time.
func NewStepStarted(runID, stepName string, attempt int) StepStarted {
	return StepStarted{RunID: runID, StepName: stepName, Attempt: attempt, At: time.Now()}
}

func (e StepStarted) Kind() Kind            { return KindStepStarted }
func (e StepStarted) OccurredAt() time.Time { return e.At }
func (e StepStarted) EventRunID() string    { return e.RunID }

// StepCompleted marks a successful step execution.
type StepCompleted struct {
	RunID           string
	StepName        string
	DurationSeconds float64
	At              time.Time
}

// NewStepCompleted builds a StepCompleted event stamped with the current time.
func NewStepCompleted(runID, stepName string, durationSeconds float64) StepCompleted {
	return StepCompleted{RunID: runID, StepName: stepName, DurationSeconds: durationSeconds, At: time.Now()}
}

func (e StepCompleted) Kind() Kind            { return KindStepCompleted }
func (e StepCompleted) OccurredAt() time.Time { return e.At }
func (e StepCompleted) EventRunID() string    { return e.RunID }

// StepFailed marks the terminal failure of a step after all retries were
// exhausted or the failure was not recoverable.
type StepFailed struct {
	RunID    string
	StepName string
	Err      string
	At       time.Time
}

// NewStepFailed builds a StepFailed event stamped with the current time.
func NewStepFailed(runID, stepName, errText string) StepFailed {
	return StepFailed{RunID: runID, StepName: stepName, Err: errText, At: time.Now()}
}

func (e StepFailed) Kind() Kind            { return KindStepFailed }
func (e StepFailed) OccurredAt() time.Time { return e.At }
func (e StepFailed) EventRunID() string    { return e.RunID }

// CommandQueued is emitted by step implementations when they enqueue a
// shell command for execution.
type CommandQueued struct {
	RunID    string
	Command  string
	Source   string
	Priority int
	At       time.Time
}

// NewCommandQueued builds a CommandQueued event stamped with the current time.
func NewCommandQueued(runID, command, source string, priority int) CommandQueued {
	return CommandQueued{RunID: runID, Command: command, Source: source, Priority: priority, At: time.Now()}
}

func (e CommandQueued) Kind() Kind            { return KindCommandQueued }
func (e CommandQueued) OccurredAt() time.Time { return e.At }
func (e CommandQueued) EventRunID() string    { return e.RunID }

// CommandStarted is emitted by step implementations when a queued command
// begins executing.
type CommandStarted struct {
	RunID   string
	Command string
	At      time.Time
}

// NewCommandStarted builds a CommandStarted event stamped with the current time.
func NewCommandStarted(runID, command string) CommandStarted {
	return CommandStarted{RunID: runID, Command: command, At: time.Now()}
}

func (e CommandStarted) Kind() Kind            { return KindCommandStarted }
func (e CommandStarted) OccurredAt() time.Time { return e.At }
func (e CommandStarted) EventRunID() string    { return e.RunID }

// CommandCompleted is emitted by step implementations when a command exits.
type CommandCompleted struct {
	RunID           string
	Command         string
	ExitCode        int
	DurationSeconds float64
	At              time.Time
}

// NewCommandCompleted builds a CommandCompleted event stamped with the current time.
func NewCommandCompleted(runID, command string, exitCode int, durationSeconds float64) CommandCompleted {
	return CommandCompleted{RunID: runID, Command: command, ExitCode: exitCode, DurationSeconds: durationSeconds, At: time.Now()}
}

func (e CommandCompleted) Kind() Kind            { return KindCommandCompleted }
func (e CommandCompleted) OccurredAt() time.Time { return e.At }
func (e CommandCompleted) EventRunID() string    { return e.RunID }

// NodeStarted marks the beginning of a workflow node execution.
type NodeStarted struct {
	RunID    string
	NodeID   string
	NodeType string
	At       time.Time
}

// NewNodeStarted builds a NodeStarted event stamped with the current time.
func NewNodeStarted(runID, nodeID, nodeType string) NodeStarted {
	return NodeStarted{RunID: runID, NodeID: nodeID, NodeType: nodeType, At: time.Now()}
}

func (e NodeStarted) Kind() Kind            { return KindNodeStarted }
func (e NodeStarted) OccurredAt() time.Time { return e.At }
func (e NodeStarted) EventRunID() string    { return e.RunID }

// NodeCompleted marks a successful workflow node execution.
type NodeCompleted struct {
	RunID           string
	NodeID          string
	DurationSeconds float64
	At              time.Time
}

// NewNodeCompleted builds a NodeCompleted event stamped with the current time.
func NewNodeCompleted(runID, nodeID string, durationSeconds float64) NodeCompleted {
	return NodeCompleted{RunID: runID, NodeID: nodeID, DurationSeconds: durationSeconds, At: time.Now()}
}

func (e NodeCompleted) Kind() Kind            { return KindNodeCompleted }
func (e NodeCompleted) OccurredAt() time.Time { return e.At }
func (e NodeCompleted) EventRunID() string    { return e.RunID }

// NodeFailed marks a workflow node that errored or timed out. Node failures
// are local; the scheduler continues with the remaining nodes.
type NodeFailed struct {
	RunID  string
	NodeID string
	Err    string
	At     time.Time
}

// NewNodeFailed builds a NodeFailed event stamped with the current time.
func NewNodeFailed(runID, nodeID, errText string) NodeFailed {
	return NodeFailed{RunID: runID, NodeID: nodeID, Err: errText, At: time.Now()}
}

func (e NodeFailed) Kind() Kind            { return KindNodeFailed }
func (e NodeFailed) OccurredAt() time.Time { return e.At }
func (e NodeFailed) EventRunID() string    { return e.RunID }
