// File: internal/workflow/report.go
package workflow

import "github.com/google/uuid"

// Exit codes reported to the shell.
const (
	ExitOK      = 0
	ExitFatal   = 1
	ExitPartial = 2
)

// ActionResult records the outcome of one backup action.
type ActionResult struct {
	Name         string
	ArchivedPath string
	Err          error
}

// Report is the outcome of a whole run.
type Report struct {
	RunID   string
	Results []ActionResult
	// FatalErr is set when the run died before or between actions, in
	// connect, login, or teardown.
	FatalErr error
}

func newReport() *Report {
	return &Report{RunID: uuid.NewString()}
}

func (r *Report) record(name, archivedPath string, err error) {
	r.Results = append(r.Results, ActionResult{Name: name, ArchivedPath: archivedPath, Err: err})
}

// Failed reports whether anything in the run went wrong.
func (r *Report) Failed() bool {
	if r.FatalErr != nil {
		return true
	}
	for _, res := range r.Results {
		if res.Err != nil {
			return true
		}
	}
	return false
}

// ExitCode maps the report onto the process exit code: 0 when every action
// archived its artifact, 1 when the run died fatally, 2 when the run
// completed but one or more actions failed.
func (r *Report) ExitCode() int {
	if r.FatalErr != nil {
		return ExitFatal
	}
	for _, res := range r.Results {
		if res.Err != nil {
			return ExitPartial
		}
	}
	return ExitOK
}
