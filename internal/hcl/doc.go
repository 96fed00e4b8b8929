// Package hcl provides the concrete HCL implementation of workflow
// definition loading. It parses .hcl files, decodes them into the HCL-shaped
// schema, and translates the result into the format-agnostic config model.
package hcl
