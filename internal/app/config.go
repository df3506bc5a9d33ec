package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// PipelinePath is a pipeline definition file or a directory of them.
	PipelinePath string
	// SourceRoot is the directory layer copy inputs are resolved against.
	SourceRoot string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
	// Watch re-runs the pipeline when files under SourceRoot change.
	Watch bool
	// EnvFile is an optional dotenv file with artifact store credentials.
	EnvFile string
}

// NewConfig validates a Config and fills defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	if cfg.SourceRoot == "" {
		cfg.SourceRoot = "."
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	return &cfg, nil
}
