package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/gantryci/gantry/internal/ctxlog"
	"github.com/gantryci/gantry/internal/dag"
	"github.com/gantryci/gantry/internal/envbuild"
)

// JobFailure reports a job command that ran to completion with a non-zero
// exit status.
type JobFailure struct {
	Job        string
	ExitStatus int
}

// Error implements the error interface.
func (e *JobFailure) Error() string {
	return fmt.Sprintf("job %q failed with exit status %d", e.Job, e.ExitStatus)
}

// GateFailure is the cause recorded on a skipped job: an upstream gate
// reached a terminal state other than succeeded.
type GateFailure struct {
	Gate string
}

// Error implements the error interface.
func (e *GateFailure) Error() string {
	return fmt.Sprintf("gate %q did not succeed", e.Gate)
}

// Executor drives one pipeline run over a dependency graph.
type Executor struct {
	graph      *dag.Graph
	builder    *envbuild.Builder
	engine     envbuild.Engine
	numWorkers int
	runID      string
	wg         sync.WaitGroup
}

// New creates an Executor. workers bounds how many jobs may be running
// concurrently; values below one are clamped to one.
func New(graph *dag.Graph, builder *envbuild.Builder, engine envbuild.Engine, workers int) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{
		graph:      graph,
		builder:    builder,
		engine:     engine,
		numWorkers: workers,
		runID:      uuid.NewString(),
	}
}

// RunID returns the unique identifier of this run.
func (e *Executor) RunID() string {
	return e.runID
}

// Run executes the whole graph and returns the aggregated report. Run
// itself never fails; individual job outcomes, including cancellation,
// are expressed through the report.
func (e *Executor) Run(ctx context.Context) *Report {
	logger := ctxlog.FromContext(ctx).With("runID", e.runID)
	ctx = ctxlog.WithLogger(ctx, logger)

	readyChan := make(chan *dag.Node, len(e.graph.Nodes))

	logger.Debug("Initializing executor, finding root jobs...")
	rootCount := 0
	for _, node := range e.graph.Nodes {
		if node.Ready() {
			logger.Debug("Found root job.", "jobID", node.ID)
			readyChan <- node
			rootCount++
		}
	}
	logger.Debug("Found all root jobs.", "count", rootCount)

	e.wg.Add(len(e.graph.Nodes))

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(ctx, readyChan, i)
	}

	logger.Info("Waiting for all jobs to complete...")
	e.wg.Wait()
	close(readyChan)
	logger.Info("All jobs completed.")

	return e.report()
}

// skipDependents recursively marks all downstream jobs as skipped. The
// Environment Builder is never invoked for a skipped job.
func (e *Executor) skipDependents(ctx context.Context, node *dag.Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		dep := dependent
		dep.MarkSkippedOnce(&GateFailure{Gate: node.Job.Name}, func() {
			logger.Warn("Skipping job due to upstream gate failure.",
				"jobID", dep.ID, "gate", node.ID)
			e.wg.Done()
			e.skipDependents(ctx, dep)
		})
	}
}

// skipNode marks one job skipped because the run was cancelled, then
// cascades to its dependents.
func (e *Executor) skipNode(ctx context.Context, node *dag.Node, cause error) {
	logger := ctxlog.FromContext(ctx)
	node.MarkSkippedOnce(cause, func() {
		logger.Warn("Run cancelled, skipping job.", "jobID", node.ID)
		e.wg.Done()
		e.skipDependents(ctx, node)
	})
}
