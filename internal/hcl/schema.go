package hcl

import "github.com/hashicorp/hcl/v2"

// fileSchema is the top-level shape of one .hcl definition file.
type fileSchema struct {
	Workflows []*workflowSchema `hcl:"workflow,block"`
}

// workflowSchema is the HCL-shaped `workflow` block before translation.
type workflowSchema struct {
	Name        string            `hcl:"name,label"`
	Handler     string            `hcl:"handler,optional"`
	NodeTimeout string            `hcl:"node_timeout,optional"`
	Nodes       []*nodeSchema     `hcl:"node,block"`
	Edges       []*edgeSchema     `hcl:"edge,block"`
	Categories  []*categorySchema `hcl:"categories,block"`
}

// nodeSchema is one `node "<id>"` block.
type nodeSchema struct {
	ID    string `hcl:"id,label"`
	Type  string `hcl:"type"`
	Title string `hcl:"title,optional"`
}

// edgeSchema is one `edge` block.
type edgeSchema struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

// categorySchema maps one node type to its domain list. Domains stays an
// expression so the translator can accept any value convertible to a list
// of strings.
type categorySchema struct {
	NodeType string         `hcl:"type,label"`
	Domains  hcl.Expression `hcl:"domains"`
}
