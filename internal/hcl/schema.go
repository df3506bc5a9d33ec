package hcl

import "github.com/hashicorp/hcl/v2"

// environmentBlock represents an `environment` block from a pipeline file.
type environmentBlock struct {
	Name   string        `hcl:"name,label"`
	Layers []*layerBlock `hcl:"layer,block"`
}

// layerBlock represents one ordered `layer` block within an environment.
// The first label is the layer kind, the second a free-form name.
type layerBlock struct {
	Kind    string   `hcl:"kind,label"`
	Name    string   `hcl:"name,label"`
	Copy    []string `hcl:"copy,optional"`
	Install []string `hcl:"install,optional"`
	Cleanup []string `hcl:"cleanup,optional"`
}

// jobBlock represents a `job` block from a pipeline file.
type jobBlock struct {
	Name        string   `hcl:"name,label"`
	Environment string   `hcl:"environment"`
	Command     []string `hcl:"command"`
	DependsOn   []string `hcl:"depends_on,optional"`
}

// fileRoot is used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Environments []*environmentBlock `hcl:"environment,block"`
	Jobs         []*jobBlock         `hcl:"job,block"`
	Remain       hcl.Body            `hcl:",remain"`
}
