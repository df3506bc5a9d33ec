package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gantryci/gantry/internal/dag"
	"github.com/gantryci/gantry/internal/envbuild"
	"github.com/gantryci/gantry/internal/testutil"
)

// A failing layer stops the build and fails the job that needed the
// environment; the build error names the environment, layer and action.
func TestFailingLayerFailsDependentJob(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"pipeline.hcl": `
			environment "broken" {
			  layer "base-image" "ok" {
			    install = ["true"]
			  }

			  layer "language-dependencies" "resolver" {
			    install = ["sh", "-c", "echo no matching distribution >&2; exit 4"]
			  }
			}

			job "test" {
			  environment = "broken"
			  command     = ["true"]
			}
		`,
	}

	// --- Act ---
	result := testutil.RunPipelineTest(t, files, 1)

	// --- Assert ---
	job := result.JobByName(t, "test")
	require.Equal(t, dag.Failed, job.State)
	require.Equal(t, 4, job.ExitStatus)
	require.Contains(t, string(job.Log), "no matching distribution")

	var buildErr *envbuild.BuildError
	require.ErrorAs(t, job.Err, &buildErr)
	require.Equal(t, "broken", buildErr.Environment)
	require.Equal(t, "resolver", buildErr.Layer)
	require.Equal(t, "install", buildErr.Action)
}
