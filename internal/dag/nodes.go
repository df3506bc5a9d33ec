package dag

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gantryci/gantry/internal/config"
)

// State is the lifecycle state of a job node.
type State int32

const (
	Pending State = iota
	Running
	Succeeded
	Failed
	Skipped
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Node represents a single job in the graph.
type Node struct {
	// ID is the unique identifier, "job.<name>".
	ID string
	// Job is the configuration this node executes.
	Job *config.Job
	// Env is the resolved environment the job runs in.
	Env *config.Environment
	// Deps holds the gate nodes this node depends on (predecessors).
	Deps map[string]*Node
	// Dependents holds the nodes that depend on this node (successors).
	Dependents map[string]*Node

	// Err, ExitStatus and Log are written only by the worker that owns the
	// node's terminal transition, and read after the run completes.
	Err        error
	ExitStatus int
	Log        []byte
	Started    time.Time
	Finished   time.Time

	state     atomic.Int32
	remaining atomic.Int32
	skipOnce  sync.Once
}

// State returns the node's current lifecycle state.
func (n *Node) State() State {
	return State(n.state.Load())
}

// SetState transitions the node to the given state.
func (n *Node) SetState(s State) {
	n.state.Store(int32(s))
}

// DecrementRemaining atomically decrements the count of unfinished gates
// and returns the new value. A node becomes eligible at zero.
func (n *Node) DecrementRemaining() int32 {
	return n.remaining.Add(-1)
}

// SetInitialCounters primes the remaining-gate counter from the dependency
// links. Must be called once, after linking and before execution.
func (n *Node) SetInitialCounters() {
	n.remaining.Store(int32(len(n.Deps)))
}

// Ready reports whether every gate the node depends on has succeeded.
func (n *Node) Ready() bool {
	return n.remaining.Load() == 0
}

// MarkSkippedOnce transitions the node to Skipped exactly once, recording
// cause, and runs onSkip for bookkeeping. Later calls are no-ops, which
// keeps overlapping skip cascades from double-counting.
func (n *Node) MarkSkippedOnce(cause error, onSkip func()) {
	n.skipOnce.Do(func() {
		n.SetState(Skipped)
		n.Err = cause
		if onSkip != nil {
			onSkip()
		}
	})
}
