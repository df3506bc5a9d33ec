package config

import "fmt"

// Model is the unified, format-agnostic representation of the entire
// pipeline configuration.
type Model struct {
	Pipeline *Pipeline
}

// Pipeline holds all environments and jobs declared for one run.
type Pipeline struct {
	Environments []*Environment
	Jobs         []*Job
}

// Environment describes an isolated execution environment assembled from
// ordered layers.
type Environment struct {
	Name   string
	Layers []*Layer
}

// LayerKind categorises a layer within an environment.
type LayerKind string

const (
	LayerBaseImage    LayerKind = "base-image"
	LayerSystemPkgs   LayerKind = "system-packages"
	LayerLanguageDeps LayerKind = "language-dependencies"
	LayerAppPayload   LayerKind = "application-payload"
	LayerTestPayload  LayerKind = "test-payload"
)

// KnownLayerKinds lists every accepted layer kind label.
var KnownLayerKinds = []LayerKind{
	LayerBaseImage,
	LayerSystemPkgs,
	LayerLanguageDeps,
	LayerAppPayload,
	LayerTestPayload,
}

// Layer is one ordered step in assembling an environment. Copy inputs are
// materialised into the snapshot before the install action runs. A cleanup
// action, when present, is paired to the install action and runs
// unconditionally after the install succeeds.
type Layer struct {
	Kind    LayerKind
	Name    string
	Copy    []string
	Install []string
	Cleanup []string
}

// Job is a named unit of work executed inside a built environment. Success
// is determined solely by the exit status of Command.
type Job struct {
	Name        string
	Environment string
	Command     []string
	DependsOn   []string
}

// ValidKind reports whether kind is one of the accepted layer kinds.
func ValidKind(kind LayerKind) bool {
	for _, k := range KnownLayerKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Environment returns the environment with the given name, or nil.
func (p *Pipeline) Environment(name string) *Environment {
	for _, env := range p.Environments {
		if env.Name == name {
			return env
		}
	}
	return nil
}

// Validate performs the structural checks shared by all loaders: unique
// names, resolvable environment references, non-empty commands, and at
// least one action per layer. Graph-shape validation (cycles, dangling
// depends_on) belongs to the dag package.
func (m *Model) Validate() error {
	if m.Pipeline == nil {
		return &ConfigurationError{Reason: "pipeline is empty"}
	}

	envNames := make(map[string]struct{})
	for _, env := range m.Pipeline.Environments {
		if _, dup := envNames[env.Name]; dup {
			return &ConfigurationError{Reason: fmt.Sprintf("duplicate environment %q", env.Name)}
		}
		envNames[env.Name] = struct{}{}

		if len(env.Layers) == 0 {
			return &ConfigurationError{Reason: fmt.Sprintf("environment %q has no layers", env.Name)}
		}
		for _, layer := range env.Layers {
			if !ValidKind(layer.Kind) {
				return &ConfigurationError{Reason: fmt.Sprintf(
					"environment %q layer %q: unknown kind %q", env.Name, layer.Name, layer.Kind)}
			}
			if len(layer.Install) == 0 && len(layer.Copy) == 0 {
				return &ConfigurationError{Reason: fmt.Sprintf(
					"environment %q layer %q declares neither install nor copy", env.Name, layer.Name)}
			}
			if len(layer.Cleanup) > 0 && len(layer.Install) == 0 {
				return &ConfigurationError{Reason: fmt.Sprintf(
					"environment %q layer %q pairs a cleanup with no install", env.Name, layer.Name)}
			}
		}
	}

	jobNames := make(map[string]struct{})
	for _, job := range m.Pipeline.Jobs {
		if _, dup := jobNames[job.Name]; dup {
			return &ConfigurationError{Reason: fmt.Sprintf("duplicate job %q", job.Name)}
		}
		jobNames[job.Name] = struct{}{}

		if len(job.Command) == 0 {
			return &ConfigurationError{Reason: fmt.Sprintf("job %q has an empty command", job.Name)}
		}
		if _, ok := envNames[job.Environment]; !ok {
			return &ConfigurationError{Reason: fmt.Sprintf(
				"job %q references unknown environment %q", job.Name, job.Environment)}
		}
	}

	return nil
}
