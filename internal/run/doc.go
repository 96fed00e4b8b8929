// Package run tracks the lifecycle of a single end-to-end processing run.
// A Machine enforces the legal status transition table, keeps a transition
// history, and publishes every successful transition on the event bus. The
// Machine has no internal locking: one logical owner drives transitions for
// a given run id, and multi-writer hosts must serialize per run themselves.
package run
