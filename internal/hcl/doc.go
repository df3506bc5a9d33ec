// Package hcl implements the config.Loader interface for HCL pipeline
// definitions. It discovers .hcl files, decodes environment and job blocks,
// and translates them into the format-agnostic config model.
package hcl
