package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gantryci/gantry/internal/dag"
	"github.com/gantryci/gantry/internal/executor"
	"github.com/gantryci/gantry/internal/testutil"
)

// Independent jobs fail independently: one bad job neither stops nor
// taints its siblings, and the report carries every outcome.
func TestIndependentJobsReportMixedResults(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"pipeline.hcl": `
			environment "shell" {
			  layer "base-image" "noop" {
			    install = ["true"]
			  }
			}

			job "good" {
			  environment = "shell"
			  command     = ["sh", "-c", "echo all fine"]
			}

			job "bad" {
			  environment = "shell"
			  command     = ["sh", "-c", "echo assertion failed >&2; exit 2"]
			}
		`,
	}

	// --- Act ---
	result := testutil.RunPipelineTest(t, files, 2)

	// --- Assert ---
	good := result.JobByName(t, "good")
	require.Equal(t, dag.Succeeded, good.State)
	require.Contains(t, string(good.Log), "all fine")

	bad := result.JobByName(t, "bad")
	require.Equal(t, dag.Failed, bad.State)
	require.Equal(t, 2, bad.ExitStatus)
	require.Contains(t, string(bad.Log), "assertion failed")

	var jobErr *executor.JobFailure
	require.ErrorAs(t, bad.Err, &jobErr)
	require.Equal(t, 2, jobErr.ExitStatus)

	require.True(t, result.Report.Failed())
}
