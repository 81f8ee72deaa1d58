package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string // .hcl file or directory
	SnapshotDir  string // per-pipeline JSON snapshots; empty disables resume

	Input string // raw JSON for the graph input; empty means null

	LogFormat string
	LogLevel  string

	Parallel bool
	Workers  int
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
