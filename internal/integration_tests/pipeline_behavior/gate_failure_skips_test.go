package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gantryci/gantry/internal/dag"
	"github.com/gantryci/gantry/internal/executor"
	"github.com/gantryci/gantry/internal/testutil"
)

// A failing gate must skip its whole subtree; skipped jobs never run and
// are reported distinctly from failed ones.
func TestGateFailureSkipsDependents(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"pipeline.hcl": `
			environment "shell" {
			  layer "base-image" "noop" {
			    install = ["true"]
			  }
			}

			job "lint" {
			  environment = "shell"
			  command     = ["sh", "-c", "echo style violations; exit 1"]
			}

			job "test-metrics" {
			  environment = "shell"
			  command     = ["true"]
			  depends_on  = ["lint"]
			}

			job "test-forecast" {
			  environment = "shell"
			  command     = ["true"]
			  depends_on  = ["lint"]
			}

			job "publish" {
			  environment = "shell"
			  command     = ["true"]
			  depends_on  = ["test-metrics", "test-forecast"]
			}
		`,
	}

	// --- Act ---
	result := testutil.RunPipelineTest(t, files, 4)

	// --- Assert ---
	lint := result.JobByName(t, "lint")
	require.Equal(t, dag.Failed, lint.State)
	require.Equal(t, 1, lint.ExitStatus)
	require.Contains(t, string(lint.Log), "style violations")

	for _, name := range []string{"test-metrics", "test-forecast", "publish"} {
		job := result.JobByName(t, name)
		require.Equal(t, dag.Skipped, job.State, "job %s", name)
		var gateErr *executor.GateFailure
		require.ErrorAs(t, job.Err, &gateErr)
	}

	succeeded, failed, skipped := result.Report.Counts()
	require.Equal(t, 0, succeeded)
	require.Equal(t, 1, failed)
	require.Equal(t, 3, skipped)
	require.True(t, result.Report.Failed())
}
