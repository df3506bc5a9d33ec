package integration_tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gantryci/gantry/internal/dag"
	"github.com/gantryci/gantry/internal/envbuild"
	"github.com/gantryci/gantry/internal/testutil"
)

// Cancelling a run terminates the job that is executing and skips the
// jobs that have not started. Nothing is left pending or running.
func TestCancellationTerminatesRunningAndSkipsPending(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"pipeline.hcl": `
			environment "shell" {
			  layer "base-image" "noop" {
			    install = ["true"]
			  }
			}

			job "slow" {
			  environment = "shell"
			  command     = ["sleep", "30"]
			}

			job "after" {
			  environment = "shell"
			  command     = ["true"]
			  depends_on  = ["slow"]
			}
		`,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// Long enough for the environment build and the sleep to start,
		// far shorter than the sleep itself.
		time.Sleep(2 * time.Second)
		cancel()
	}()
	t.Cleanup(cancel)

	// --- Act ---
	start := time.Now()
	result := testutil.RunPipelineTestWithContext(ctx, t, files, 2, envbuild.LocalEngine{})

	// --- Assert ---
	require.Less(t, time.Since(start), 20*time.Second, "cancellation did not interrupt the running job")

	slow := result.JobByName(t, "slow")
	require.Equal(t, dag.Failed, slow.State)
	require.ErrorContains(t, slow.Err, "terminated")

	after := result.JobByName(t, "after")
	require.Equal(t, dag.Skipped, after.State)

	for _, job := range result.Report.Jobs {
		require.NotEqual(t, dag.Pending, job.State, "job %s", job.Name)
		require.NotEqual(t, dag.Running, job.State, "job %s", job.Name)
	}
}
