// Package testutil provides shared helpers for pipeline tests: a scripted
// in-memory engine, a thread-safe log buffer, and a temp-dir harness that
// loads HCL fixtures and drives a full run.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gantryci/gantry/internal/app"
	"github.com/gantryci/gantry/internal/ctxlog"
	"github.com/gantryci/gantry/internal/dag"
	"github.com/gantryci/gantry/internal/envbuild"
	"github.com/gantryci/gantry/internal/executor"
	"github.com/gantryci/gantry/internal/hcl"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Report    *executor.Report
	Err       error
	LogOutput string
	// Root is the temp directory the fixture files were written to; job
	// and layer actions run with it as their source root.
	Root string
}

// RunPipelineTest writes the given fixture files into a temp directory,
// loads every .hcl file in it, and executes the pipeline with the real
// local engine. Job state assertions go against the returned Report.
func RunPipelineTest(t *testing.T, files map[string]string, workers int) *HarnessResult {
	t.Helper()
	return RunPipelineTestWithContext(context.Background(), t, files, workers, envbuild.LocalEngine{})
}

// RunPipelineTestWithContext is RunPipelineTest with a caller-provided
// context and engine, for cancellation and scripted-engine tests.
func RunPipelineTestWithContext(ctx context.Context, t *testing.T, files map[string]string, workers int, engine envbuild.Engine) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	logBuffer := &SafeBuffer{}
	appConfig, err := app.NewConfig(app.Config{
		PipelinePath: tmpDir,
		SourceRoot:   tmpDir,
		LogFormat:    "text",
		LogLevel:     "debug",
		WorkerCount:  workers,
	})
	require.NoError(t, err)

	result := &HarnessResult{Root: tmpDir}

	// Drive the run phase by phase instead of through app.Run so load and
	// graph errors surface directly and the report stays accessible.
	logCtx := ctxlog.WithLogger(ctx, newTestLogger(logBuffer))

	model, err := hcl.NewLoader().Load(logCtx, appConfig.PipelinePath)
	if err != nil {
		result.Err = err
		result.LogOutput = logBuffer.String()
		return result
	}

	graph, err := dag.Build(logCtx, model)
	if err != nil {
		result.Err = err
		result.LogOutput = logBuffer.String()
		return result
	}

	scratch := t.TempDir()
	builder, err := envbuild.New(engine, appConfig.SourceRoot, scratch)
	require.NoError(t, err)

	exec := executor.New(graph, builder, engine, appConfig.WorkerCount)
	result.Report = exec.Run(logCtx)
	result.LogOutput = logBuffer.String()

	if os.Getenv("GANTRY_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), result.LogOutput)
	}
	return result
}

// JobByName returns the report entry for one job, failing the test when it
// is absent.
func (r *HarnessResult) JobByName(t *testing.T, name string) executor.JobReport {
	t.Helper()
	require.NotNil(t, r.Report, "run produced no report (err: %v)", r.Err)
	for _, job := range r.Report.Jobs {
		if job.Name == name {
			return job
		}
	}
	t.Fatalf("job %q not present in report", name)
	return executor.JobReport{}
}
