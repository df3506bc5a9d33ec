package envbuild

import "fmt"

// BuildError reports a failed layer action. The environment it belongs to
// is unusable; every job referencing that environment fails with this
// error, while jobs in other environments are unaffected.
type BuildError struct {
	Environment string
	Layer       string
	// Action is "install" or "cleanup".
	Action     string
	ExitStatus int
	Log        []byte
	// Err is set when the action could not be spawned at all.
	Err error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("building environment %q: layer %q %s action: %v",
			e.Environment, e.Layer, e.Action, e.Err)
	}
	return fmt.Sprintf("building environment %q: layer %q %s action exited with status %d",
		e.Environment, e.Layer, e.Action, e.ExitStatus)
}

// Unwrap exposes the spawn error, when present, to errors.Is/As.
func (e *BuildError) Unwrap() error {
	return e.Err
}
