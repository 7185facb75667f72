// File: internal/workflow/state.go
package workflow

// State tracks the controller through a run. Transitions are strictly
// forward; a failed transition moves the run to Failed and nothing reopens
// it.
type State int

const (
	// Disconnected is the initial state before a browser exists.
	Disconnected State = iota
	// Connected means the browser is up and responding.
	Connected
	// Authenticated means login completed and the console is reachable.
	Authenticated
	// ActionInProgress means a backup action is being driven.
	ActionInProgress
	// Done is the terminal state of a run whose teardown completed.
	Done
	// Failed is the terminal state after a fatal error.
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Authenticated:
		return "authenticated"
	case ActionInProgress:
		return "action_in_progress"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
