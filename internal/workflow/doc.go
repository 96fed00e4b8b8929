// Package workflow schedules a graph of interdependent nodes. Nodes are
// topologically ordered with Kahn's algorithm and executed one at a time,
// each under its own deadline, by an external node handler. A node failure
// or timeout is local: its message becomes the node's output and scheduling
// continues, in contrast to the pipeline's all-or-nothing policy.
package workflow
