package app

import (
	"errors"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	WorkflowPath string // hcl file or directory
	RunID        string // generated when empty
	RepoURL      string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	// NodeTimeout overrides the workflow definition's node_timeout.
	NodeTimeout time.Duration

	WebhookURL         string
	DashboardURL       string
	DashboardNamespace string
}

// NewConfig validates the raw configuration.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkflowPath == "" {
		return nil, errors.New("WorkflowPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
