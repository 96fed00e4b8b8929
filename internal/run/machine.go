package run

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vk/runflowgo/internal/event"
)

// ErrNotPaused is returned by Resume when the run is not paused. Resume is
// the same underlying transition as Paused -> Running, but the dedicated
// error makes an illegal call sequence obvious at the call site.
var ErrNotPaused = errors.New("resume is only valid from the paused status")

// TransitionError reports an attempted transition the table does not allow.
// The machine's status and history are untouched when it is returned.
type TransitionError struct {
	RunID string
	From  Status
	To    Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("run %s: illegal status transition %s -> %s", e.RunID, e.From, e.To)
}

// Transition is one entry of the machine's history.
type Transition struct {
	From Status
	To   Status
	At   time.Time
}

// Callback observes successful transitions. A panicking callback is
// recovered and logged; it never rolls back the transition.
type Callback func(from, to Status, reason string)

// Machine drives the lifecycle of one run.
type Machine struct {
	runID    string
	status   Status
	history  []Transition
	bus      *event.Bus
	logger   *slog.Logger
	callback Callback
}

// Option configures a Machine.
type Option func(*Machine)

// WithInitialStatus overrides the Pending starting status.
func WithInitialStatus(s Status) Option {
	return func(m *Machine) { m.status = s }
}

// WithBus routes transition events to a specific bus instead of the
// process-wide default.
func WithBus(bus *event.Bus) Option {
	return func(m *Machine) { m.bus = bus }
}

// WithCallback installs a transition observer invoked after each successful
// transition, before the bus event is emitted.
func WithCallback(cb Callback) Option {
	return func(m *Machine) { m.callback = cb }
}

// WithLogger sets the logger used to report recovered callback panics.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMachine creates a machine for the given run id, starting at Pending
// unless an option says otherwise.
func NewMachine(runID string, opts ...Option) *Machine {
	m := &Machine{
		runID:  runID,
		status: StatusPending,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.bus == nil {
		m.bus = event.Default()
	}
	return m
}

// RunID returns the identifier this machine tracks.
func (m *Machine) RunID() string {
	return m.runID
}

// Status returns the current lifecycle status.
func (m *Machine) Status() Status {
	return m.status
}

// CanTransitionTo reports whether the table allows moving to the target
// status from the current one.
func (m *Machine) CanTransitionTo(to Status) bool {
	return CanTransition(m.status, to)
}

// TransitionTo moves the run to the target status. An illegal target fails
// with a *TransitionError and leaves status and history untouched. A legal
// transition updates the status, appends one history entry, invokes the
// optional callback, and emits a RunStatusChanged event on the bus.
func (m *Machine) TransitionTo(to Status, reason string) error {
	if !CanTransition(m.status, to) {
		return &TransitionError{RunID: m.runID, From: m.status, To: to}
	}

	from := m.status
	m.status = to
	m.history = append(m.history, Transition{From: from, To: to, At: time.Now()})
	m.logger.Debug("Run status changed.", "run_id", m.runID, "from", from, "to", to, "reason", reason)

	if m.callback != nil {
		m.invokeCallback(from, to, reason)
	}
	m.bus.Emit(event.NewRunStatusChanged(m.runID, string(from), string(to), reason))
	return nil
}

func (m *Machine) invokeCallback(from, to Status, reason string) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Transition callback panicked; transition stands.", "run_id", m.runID, "from", from, "to", to, "panic", r)
		}
	}()
	m.callback(from, to, reason)
}

// History returns a copy of the recorded transitions, oldest first.
func (m *Machine) History() []Transition {
	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}

// StartAnalyzing moves a pending run into analysis.
func (m *Machine) StartAnalyzing() error {
	return m.TransitionTo(StatusAnalyzing, "analysis started")
}

// StartRunning moves the run into active execution.
func (m *Machine) StartRunning() error {
	return m.TransitionTo(StatusRunning, "execution started")
}

// Pause suspends an executing run.
func (m *Machine) Pause(reason string) error {
	return m.TransitionTo(StatusPaused, reason)
}

// Resume continues a paused run. Any other current status fails with
// ErrNotPaused, wrapped with the offending status.
func (m *Machine) Resume() error {
	if m.status != StatusPaused {
		return fmt.Errorf("%w: current status %q", ErrNotPaused, m.status)
	}
	return m.TransitionTo(StatusRunning, "resumed")
}

// Gate parks the run on an external decision, such as a policy violation
// awaiting human approval.
func (m *Machine) Gate(reason string) error {
	return m.TransitionTo(StatusGated, reason)
}

// Complete finalizes the run as Success or Failed.
func (m *Machine) Complete(success bool) error {
	if success {
		return m.TransitionTo(StatusSuccess, "completed successfully")
	}
	return m.TransitionTo(StatusFailed, "completed with failures")
}

// Cancel terminates the run on caller request. Cancellation does not
// interrupt work already in flight; it only forbids further transitions.
func (m *Machine) Cancel(reason string) error {
	return m.TransitionTo(StatusCancelled, reason)
}

// MarkError records an unrecoverable orchestration fault.
func (m *Machine) MarkError(reason string) error {
	return m.TransitionTo(StatusError, reason)
}
