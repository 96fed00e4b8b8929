// Package config defines the format-agnostic model a workflow definition is
// loaded into. The hcl package produces this model; hosts consume it without
// knowing what format it was parsed from.
package config
