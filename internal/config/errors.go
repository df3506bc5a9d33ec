package config

// ConfigurationError reports a malformed pipeline definition. It is always
// detected before execution starts; a pipeline with a configuration error
// never runs.
type ConfigurationError struct {
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return "invalid pipeline configuration: " + e.Reason
}
