package thread

// RunStatus is the lifecycle state of an assistant-generation cycle
type RunStatus string

const (
	RunQueued         RunStatus = "queued"
	RunInProgress     RunStatus = "in_progress"
	RunRequiresAction RunStatus = "requires_action"
	RunCompleted      RunStatus = "completed"
	RunFailed         RunStatus = "failed"
	RunCancelled      RunStatus = "cancelled"
	RunExpired        RunStatus = "expired"
)

// Terminal reports whether the status ends a run
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled, RunExpired:
		return true
	}
	return false
}

// Run is one assistant-generation cycle tied to a thread
type Run struct {
	ID     string
	Status RunStatus
}

// Finished reports whether the run has reached a terminal status
func (r Run) Finished() bool {
	return r.Status.Terminal()
}
