// Package pipeline executes an ordered list of steps against a shared,
// mutable context. Steps declare their own retry and skip policy; the driver
// retries recoverable failures up to the step's limit and aborts the whole
// pipeline on the first unrecovered failure. There is no continue-on-failure
// mode. Step lifecycle events are published on the event bus.
package pipeline
