// Package config defines the unified, format-agnostic pipeline model and
// the Loader interface that format-specific loaders (HCL, YAML) implement.
package config
