// Package executor runs a validated job graph: gates first, dependents
// fanned out across a bounded worker pool once their gates succeed. A
// failed gate cascades skips to its whole downstream subtree without
// building any of their environments; failures never abort unrelated
// branches. The terminal state of every job is collected into a Report.
package executor
