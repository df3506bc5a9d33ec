package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gantryci/gantry/internal/artifact"
	"github.com/gantryci/gantry/internal/ctxlog"
	"github.com/gantryci/gantry/internal/dag"
	"github.com/gantryci/gantry/internal/envbuild"
	"github.com/gantryci/gantry/internal/executor"
	"github.com/gantryci/gantry/internal/watch"
)

// ErrPipelineFailed marks a run in which at least one job failed. The CLI
// maps it to a non-zero exit code.
var ErrPipelineFailed = errors.New("pipeline failed")

// Run executes the pipeline once, or repeatedly in watch mode, and returns
// the outcome of the (last) run.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(ctx)
		defer a.closeHealthcheckServer(ctx)
	}

	if !a.config.Watch {
		return a.runOnce(ctx)
	}

	// Watch mode: one immediate run, then a re-run per settled change burst.
	if err := a.runOnce(ctx); err != nil && !errors.Is(err, ErrPipelineFailed) {
		return err
	}
	return watch.Watch(ctx, []string{a.config.SourceRoot}, func() {
		if err := a.reload(ctx); err != nil {
			a.logger.Error("Pipeline reload failed, keeping previous definition.", "error", err)
		}
		if err := a.runOnce(ctx); err != nil {
			a.logger.Error("Pipeline run failed.", "error", err)
		}
	})
}

// runOnce builds the graph and drives a single pipeline run end to end.
func (a *App) runOnce(ctx context.Context) error {
	a.logger.Debug("Building dependency graph from config model...")
	graph, err := dag.Build(ctx, a.model)
	if err != nil {
		return err
	}
	a.logger.Debug("Dependency graph built.", "node_count", len(graph.Nodes))

	if len(graph.Nodes) == 0 {
		a.logger.Warn("No jobs found in pipeline, execution not required.")
		return nil
	}

	scratch, err := os.MkdirTemp("", "gantry-run-*")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	builder, err := envbuild.New(a.engine, a.config.SourceRoot, scratch)
	if err != nil {
		return err
	}

	a.logger.Info("🚀 Starting pipeline run...")
	exec := executor.New(graph, builder, a.engine, a.config.WorkerCount)
	report := exec.Run(ctx)
	a.logger.Info("🏁 Pipeline run finished.")

	report.Render(a.outW)
	a.uploadFailedLogs(ctx, report)

	if report.Failed() {
		_, failed, _ := report.Counts()
		return fmt.Errorf("%w: %d job(s) failed", ErrPipelineFailed, failed)
	}
	return nil
}

// reload re-reads the pipeline definition, keeping the old model if the
// new one does not load.
func (a *App) reload(ctx context.Context) error {
	model, err := a.loader.Load(ctx, a.config.PipelinePath)
	if err != nil {
		return err
	}
	a.model = model
	return nil
}

// uploadFailedLogs retains failed jobs' logs in the artifact store, when
// one is configured. Upload problems are logged, never fatal to the run.
func (a *App) uploadFailedLogs(ctx context.Context, report *executor.Report) {
	cfg := artifact.FromEnv()
	if !cfg.Enabled() {
		return
	}

	store, err := artifact.New(ctx, cfg)
	if err != nil {
		a.logger.Error("Artifact store unavailable, keeping logs local.", "error", err)
		return
	}

	for _, job := range report.Jobs {
		if job.State != dag.Failed || len(job.Log) == 0 {
			continue
		}
		if _, err := store.UploadLog(ctx, report.RunID, job.Name, job.Log); err != nil {
			a.logger.Error("Failed to upload job log.", "job", job.Name, "error", err)
		}
	}
}
