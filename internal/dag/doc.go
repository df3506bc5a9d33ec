// Package dag builds the validated job dependency graph for one pipeline
// run. Nodes are addressed by stable string IDs; edges come exclusively
// from explicit depends_on declarations. All shape errors (cycles, dangling
// references) are rejected here, before execution starts.
package dag
