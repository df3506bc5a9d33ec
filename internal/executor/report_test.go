package executor

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gantryci/gantry/internal/dag"
)

func sampleReport() *Report {
	return &Report{
		RunID: "run-1234",
		Jobs: []JobReport{
			{Name: "lint", State: dag.Failed, ExitStatus: 1, Duration: 80 * time.Millisecond, Err: &JobFailure{Job: "lint", ExitStatus: 1}},
			{Name: "test-forecast", State: dag.Skipped, Err: &GateFailure{Gate: "lint"}},
			{Name: "test-metrics", State: dag.Skipped, Err: &GateFailure{Gate: "lint"}},
			{Name: "vet", State: dag.Succeeded, Duration: 120 * time.Millisecond},
		},
	}
}

func TestReportFailed(t *testing.T) {
	require.True(t, sampleReport().Failed())

	clean := &Report{Jobs: []JobReport{
		{Name: "a", State: dag.Succeeded},
		{Name: "b", State: dag.Skipped, Err: errors.New("gate")},
	}}
	require.False(t, clean.Failed(), "skipped jobs do not fail a run on their own")
}

func TestReportCounts(t *testing.T) {
	succeeded, failed, skipped := sampleReport().Counts()
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, failed)
	require.Equal(t, 2, skipped)
}

func TestReportRender(t *testing.T) {
	var buf bytes.Buffer
	sampleReport().Render(&buf)
	out := buf.String()

	require.Contains(t, out, "pipeline run run-1234: failure")
	require.Contains(t, out, "lint")
	require.Contains(t, out, "failed")
	require.Contains(t, out, `gate "lint" did not succeed`)
	require.Contains(t, out, "1 succeeded, 1 failed, 2 skipped")
}

func TestReportRenderSuccess(t *testing.T) {
	var buf bytes.Buffer
	r := &Report{RunID: "run-ok", Jobs: []JobReport{{Name: "a", State: dag.Succeeded}}}
	r.Render(&buf)

	require.Contains(t, buf.String(), "pipeline run run-ok: success")
	require.Contains(t, buf.String(), "1 succeeded, 0 failed, 0 skipped")
}

func TestFailureErrorStrings(t *testing.T) {
	require.Equal(t, `job "test" failed with exit status 2`, (&JobFailure{Job: "test", ExitStatus: 2}).Error())
	require.Equal(t, `gate "lint" did not succeed`, (&GateFailure{Gate: "lint"}).Error())
}
