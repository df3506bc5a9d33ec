// Package yamlcfg implements the config.Loader interface for YAML pipeline
// definitions. It is the alternate format to HCL and produces the same
// unified model.
package yamlcfg

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gantryci/gantry/internal/config"
	"github.com/gantryci/gantry/internal/ctxlog"
	"github.com/gantryci/gantry/internal/fsutil"
)

// Loader is the YAML-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

type pipelineFile struct {
	Environments []environmentDoc `yaml:"environments"`
	Jobs         []jobDoc         `yaml:"jobs"`
}

type environmentDoc struct {
	Name   string     `yaml:"name"`
	Layers []layerDoc `yaml:"layers"`
}

type layerDoc struct {
	Kind    string   `yaml:"kind"`
	Name    string   `yaml:"name"`
	Copy    []string `yaml:"copy"`
	Install []string `yaml:"install"`
	Cleanup []string `yaml:"cleanup"`
}

type jobDoc struct {
	Name        string   `yaml:"name"`
	Environment string   `yaml:"environment"`
	Command     []string `yaml:"command"`
	DependsOn   []string `yaml:"depends_on"`
}

// Load reads every .yaml/.yml file under the given paths and merges their
// environments and jobs into one pipeline model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path_count", len(paths))

	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to access config path %s: %w", path, err)
		}
		if info.IsDir() {
			found, err := fsutil.FindFilesByExtension(path, ".yaml", ".yml")
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
			continue
		}
		files = append(files, path)
	}
	if len(files) == 0 {
		return nil, &config.ConfigurationError{Reason: fmt.Sprintf("no .yaml files found under %v", paths)}
	}

	pipeline := &config.Pipeline{}
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}

		var doc pipelineFile
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, &config.ConfigurationError{Reason: fmt.Sprintf("decoding %s: %s", file, err)}
		}

		for _, env := range doc.Environments {
			pipeline.Environments = append(pipeline.Environments, translateEnvironment(env))
		}
		for _, job := range doc.Jobs {
			pipeline.Jobs = append(pipeline.Jobs, &config.Job{
				Name:        job.Name,
				Environment: job.Environment,
				Command:     job.Command,
				DependsOn:   job.DependsOn,
			})
		}
	}

	model := &config.Model{Pipeline: pipeline}
	if err := model.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("YAML configuration loaded and translated into unified model.",
		"environments", len(pipeline.Environments), "jobs", len(pipeline.Jobs))
	return model, nil
}

func translateEnvironment(e environmentDoc) *config.Environment {
	env := &config.Environment{Name: e.Name}
	for _, l := range e.Layers {
		env.Layers = append(env.Layers, &config.Layer{
			Kind:    config.LayerKind(l.Kind),
			Name:    l.Name,
			Copy:    l.Copy,
			Install: l.Install,
			Cleanup: l.Cleanup,
		})
	}
	return env
}
