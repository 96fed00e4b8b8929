package run

// Status is the closed set of run lifecycle states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAnalyzing Status = "analyzing"
	StatusGated     Status = "gated"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusArchived  Status = "archived"
	StatusError     Status = "error"
)

// transitions is the single source of truth for legality. A status missing
// from the outer map is terminal: it has no outgoing transitions.
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusAnalyzing: true,
		StatusError:     true,
		StatusCancelled: true,
	},
	StatusAnalyzing: {
		StatusGated:     true,
		StatusRunning:   true,
		StatusError:     true,
		StatusCancelled: true,
	},
	StatusGated: {
		StatusRunning:   true,
		StatusCancelled: true,
	},
	StatusRunning: {
		StatusPaused:  true,
		StatusSuccess: true,
		StatusFailed:  true,
		StatusError:   true,
	},
	StatusPaused: {
		StatusRunning:   true,
		StatusCancelled: true,
	},
}

var terminal = map[Status]bool{
	StatusSuccess:   true,
	StatusFailed:    true,
	StatusCancelled: true,
	StatusArchived:  true,
	StatusError:     true,
}

var active = map[Status]bool{
	StatusPending:   true,
	StatusAnalyzing: true,
	StatusRunning:   true,
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s Status) IsTerminal() bool {
	return terminal[s]
}

// IsActive reports whether the status counts as active for scheduling.
// Gated is neither terminal nor active: the run is parked on an external
// decision.
func (s Status) IsActive() bool {
	return active[s]
}

// CanTransition reports whether the transition table allows from -> to.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}
