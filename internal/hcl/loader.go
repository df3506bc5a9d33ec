package hcl

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/gantryci/gantry/internal/config"
	"github.com/gantryci/gantry/internal/ctxlog"
	"github.com/gantryci/gantry/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load orchestrates the HCL configuration loading process. Each path may be
// a single .hcl file or a directory searched recursively.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := findHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &config.ConfigurationError{Reason: fmt.Sprintf("no .hcl files found under %v", paths)}
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	pipeline := &config.Pipeline{}
	parser := hclparse.NewParser()
	evalCtx := buildEvalContext()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, &config.ConfigurationError{Reason: fmt.Sprintf("parsing %s: %s", file, diags.Error())}
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &root); diags.HasErrors() {
			return nil, &config.ConfigurationError{Reason: fmt.Sprintf("decoding %s: %s", file, diags.Error())}
		}

		for _, env := range root.Environments {
			pipeline.Environments = append(pipeline.Environments, translateEnvironment(env))
		}
		for _, job := range root.Jobs {
			pipeline.Jobs = append(pipeline.Jobs, translateJob(job))
		}
	}

	model := &config.Model{Pipeline: pipeline}
	if err := model.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("HCL configuration loaded and translated into unified model.",
		"environments", len(pipeline.Environments), "jobs", len(pipeline.Jobs))
	return model, nil
}

// findHCLFiles expands the given paths into the flat list of .hcl files.
func findHCLFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to access config path %s: %w", path, err)
		}
		if info.IsDir() {
			found, err := fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
			continue
		}
		files = append(files, path)
	}
	return files, nil
}

// buildEvalContext exposes the process environment to pipeline files as the
// `env` object, so definitions can interpolate values like env.HOME.
func buildEvalContext() *hcl.EvalContext {
	envVars := make(map[string]cty.Value)
	for _, entry := range os.Environ() {
		pair := strings.SplitN(entry, "=", 2)
		if len(pair) == 2 {
			envVars[pair[0]] = cty.StringVal(pair[1])
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(envVars),
		},
	}
}

// translateEnvironment converts the HCL-specific environment schema into the
// agnostic model.
func translateEnvironment(e *environmentBlock) *config.Environment {
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

// translateJob converts the HCL-specific job schema into the agnostic model.
func translateJob(j *jobBlock) *config.Job {
	return &config.Job{
		Name:        j.Name,
		Environment: j.Environment,
		Command:     j.Command,
		DependsOn:   j.DependsOn,
	}
}
