package config

import "time"

// Model is the root of the loaded configuration.
type Model struct {
	Workflow *Workflow
}

// Workflow is one declared node/edge graph plus its execution settings.
type Workflow struct {
	Name string

	// Handler names the registered node handler that solves every node.
	Handler string

	// NodeTimeout bounds one node handler call. Zero means the scheduler
	// default applies.
	NodeTimeout time.Duration

	Nodes       []Node
	Connections []Connection

	// Categories maps a node type to the domain categories handed to the
	// node handler.
	Categories map[string][]string
}

// Node declares one unit of workflow work.
type Node struct {
	ID    string
	Type  string
	Title string
}

// Connection declares one directed edge between nodes.
type Connection struct {
	From string
	To   string
}
