// Package app wires the orchestration core into a runnable host: it builds
// the isolated logger and event bus, loads the workflow definition, registers
// modules, validates the registry, and drives a run state machine around a
// preflight pipeline and the workflow scheduler.
package app
