package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/runflowgo/internal/config"
	"github.com/vk/runflowgo/internal/ctxlog"
)

// Loader parses HCL workflow definitions into the agnostic config model.
type Loader struct{}

// NewLoader creates a new HCL loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads the given path, which may be a single .hcl file or a directory
// of .hcl files, and returns the translated model. Exactly one workflow
// block must be declared across all files.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := collectFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found at %s", path)
	}
	logger.Debug("Loading workflow definition.", "path", path, "file_count", len(files))

	parser := hclparse.NewParser()
	var workflows []*workflowSchema
	for _, file := range files {
		parsed, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing %s: %w", file, diags)
		}
		var schema fileSchema
		if diags := gohcl.DecodeBody(parsed.Body, nil, &schema); diags.HasErrors() {
			return nil, fmt.Errorf("decoding %s: %w", file, diags)
		}
		workflows = append(workflows, schema.Workflows...)
	}

	if len(workflows) == 0 {
		return nil, fmt.Errorf("no workflow block declared in %s", path)
	}
	if len(workflows) > 1 {
		return nil, fmt.Errorf("expected exactly one workflow block, found %d", len(workflows))
	}

	wf, err := l.translateWorkflow(workflows[0])
	if err != nil {
		return nil, err
	}
	logger.Debug("Workflow definition translated.", "workflow", wf.Name, "node_count", len(wf.Nodes))
	return &config.Model{Workflow: wf}, nil
}

// translateWorkflow converts the HCL-shaped schema into the agnostic model,
// validating ids and evaluating category expressions.
func (l *Loader) translateWorkflow(s *workflowSchema) (*config.Workflow, error) {
	wf := &config.Workflow{
		Name:       s.Name,
		Handler:    s.Handler,
		Categories: make(map[string][]string),
	}

	if s.NodeTimeout != "" {
		d, err := time.ParseDuration(s.NodeTimeout)
		if err != nil {
			return nil, fmt.Errorf("workflow %q: invalid node_timeout: %w", s.Name, err)
		}
		wf.NodeTimeout = d
	}

	seen := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		if seen[n.ID] {
			return nil, fmt.Errorf("workflow %q: duplicate node id %q", s.Name, n.ID)
		}
		seen[n.ID] = true
		title := n.Title
		if title == "" {
			title = n.ID
		}
		wf.Nodes = append(wf.Nodes, config.Node{ID: n.ID, Type: n.Type, Title: title})
	}

	for _, e := range s.Edges {
		wf.Connections = append(wf.Connections, config.Connection{From: e.From, To: e.To})
	}

	for _, c := range s.Categories {
		domains, err := evalStringList(c.Domains)
		if err != nil {
			return nil, fmt.Errorf("workflow %q: categories %q: %w", s.Name, c.NodeType, err)
		}
		wf.Categories[c.NodeType] = domains
	}

	return wf, nil
}

// evalStringList evaluates an expression that must yield a list or tuple,
// converting each element to string so users get the coercion HCL makes
// them expect.
func evalStringList(expr hcl.Expression) ([]string, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() || (!val.Type().IsTupleType() && !val.Type().IsListType() && !val.Type().IsSetType()) {
		return nil, fmt.Errorf("domains must be a list of strings")
	}

	var out []string
	for it := val.ElementIterator(); it.Next(); {
		_, v := it.Element()
		converted, err := convert.Convert(v, cty.String)
		if err != nil {
			return nil, fmt.Errorf("domains element: %w", err)
		}
		out = append(out, converted.AsString())
	}
	return out, nil
}

// collectFiles resolves a path to the sorted list of .hcl files it names.
func collectFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", path, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".hcl") {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}
