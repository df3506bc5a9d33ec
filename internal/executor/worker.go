package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gantryci/gantry/internal/ctxlog"
	"github.com/gantryci/gantry/internal/dag"
	"github.com/gantryci/gantry/internal/envbuild"
)

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *dag.Node, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for node := range readyChan {
		workerLogger := logger.With("workerID", workerID, "jobID", node.ID)

		// A cascade may have skipped the node after it was enqueued.
		if node.State() != dag.Pending {
			continue
		}

		if ctx.Err() != nil {
			e.skipNode(ctx, node, ctx.Err())
			continue
		}

		workerLogger.Debug("Worker picked up job for execution.")
		node.SetState(dag.Running)
		node.Started = time.Now()
		err := e.runJob(ctx, node)
		node.Finished = time.Now()

		if err != nil {
			// A running job hit by cancellation is terminated best-effort
			// and reported as failed with the cancellation as its cause;
			// only jobs that never started become skipped.
			if ctx.Err() != nil {
				err = fmt.Errorf("terminated: %w", context.Cause(ctx))
			}

			workerLogger.Error("Job failed.", "error", err)
			node.SetState(dag.Failed)
			node.Err = err
			e.skipDependents(ctx, node)
			e.wg.Done()
			continue
		}

		workerLogger.Debug("Job succeeded.")
		node.SetState(dag.Succeeded)

		for _, dependent := range node.Dependents {
			if dependent.DecrementRemaining() == 0 {
				workerLogger.Debug("Unlocking dependent job.", "dependentID", dependent.ID)
				readyChan <- dependent
			}
		}

		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// runJob builds (or reuses) the job's environment, leases a private
// working tree from the snapshot, and executes the job command in it.
func (e *Executor) runJob(ctx context.Context, node *dag.Node) error {
	logger := ctxlog.FromContext(ctx).With("job", node.Job.Name)
	logger.Info("▶️ Starting job", "environment", node.Env.Name)

	handle, err := e.builder.Build(ctx, node.Env)
	if err != nil {
		var buildErr *envbuild.BuildError
		if errors.As(err, &buildErr) {
			node.ExitStatus = buildErr.ExitStatus
			node.Log = buildErr.Log
		}
		return err
	}

	dir, release, err := e.builder.Lease(ctx, handle, node.Job.Name)
	if err != nil {
		return err
	}
	defer release()

	result, err := e.engine.Exec(ctx, dir, node.Job.Command)
	if err != nil {
		return fmt.Errorf("job %q could not start: %w", node.Job.Name, err)
	}

	node.ExitStatus = result.ExitStatus
	node.Log = result.Log

	if result.ExitStatus != 0 {
		return &JobFailure{Job: node.Job.Name, ExitStatus: result.ExitStatus}
	}

	logger.Info("✅ Finished job")
	return nil
}
