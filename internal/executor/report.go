package executor

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/gantryci/gantry/internal/dag"
)

// JobReport is the terminal record of one job in a run.
type JobReport struct {
	Name       string
	State      dag.State
	ExitStatus int
	Duration   time.Duration
	Err        error
	Log        []byte
}

// Report aggregates the terminal state of every job in a pipeline run.
// Every job appears exactly once; nothing is swallowed.
type Report struct {
	RunID string
	Jobs  []JobReport
}

// report assembles the final report from the graph's terminal states.
func (e *Executor) report() *Report {
	r := &Report{RunID: e.runID}
	for _, node := range e.graph.Nodes {
		r.Jobs = append(r.Jobs, JobReport{
			Name:       node.Job.Name,
			State:      node.State(),
			ExitStatus: node.ExitStatus,
			Duration:   node.Finished.Sub(node.Started),
			Err:        node.Err,
			Log:        node.Log,
		})
	}
	sort.Slice(r.Jobs, func(i, j int) bool { return r.Jobs[i].Name < r.Jobs[j].Name })
	return r
}

// Failed reports whether any job failed. Skipped jobs do not fail a run
// on their own.
func (r *Report) Failed() bool {
	for _, job := range r.Jobs {
		if job.State == dag.Failed {
			return true
		}
	}
	return false
}

// Counts returns the number of jobs per terminal state.
func (r *Report) Counts() (succeeded, failed, skipped int) {
	for _, job := range r.Jobs {
		switch job.State {
		case dag.Succeeded:
			succeeded++
		case dag.Failed:
			failed++
		case dag.Skipped:
			skipped++
		}
	}
	return
}

// Render writes the human-readable run summary, one line per job, with
// skipped jobs distinguished from failed ones.
func (r *Report) Render(w io.Writer) {
	status := "success"
	if r.Failed() {
		status = "failure"
	}
	fmt.Fprintf(w, "pipeline run %s: %s\n", r.RunID, status)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, job := range r.Jobs {
		switch job.State {
		case dag.Succeeded:
			fmt.Fprintf(tw, "  ✅ %s\t%s\t%s\n", job.Name, job.State, job.Duration.Round(time.Millisecond))
		case dag.Failed:
			detail := fmt.Sprintf("exit %d", job.ExitStatus)
			if job.Err != nil {
				detail = job.Err.Error()
			}
			fmt.Fprintf(tw, "  ❌ %s\t%s\t%s\t%s\n", job.Name, job.State, job.Duration.Round(time.Millisecond), detail)
		case dag.Skipped:
			detail := ""
			if job.Err != nil {
				detail = job.Err.Error()
			}
			fmt.Fprintf(tw, "  ⏭️ %s\t%s\t\t%s\n", job.Name, job.State, detail)
		default:
			fmt.Fprintf(tw, "  ❓ %s\t%s\n", job.Name, job.State)
		}
	}
	tw.Flush()

	succeeded, failed, skipped := r.Counts()
	fmt.Fprintf(w, "%d succeeded, %d failed, %d skipped\n", succeeded, failed, skipped)
}
