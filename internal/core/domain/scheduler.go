package domain

import "time"

// ScheduledTask is a recurring background task and its run state.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Name is a human-readable name for the task.
	Name string

	// Interval defines how often the task should run.
	Interval time.Duration

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Runs counts completed runs.
	Runs int
}

// IsDue reports whether the task should run at now.
func (t *ScheduledTask) IsDue(now time.Time) bool {
	return t.NextRun.IsZero() || !t.NextRun.After(now)
}

// Record updates the run state after one execution.
func (t *ScheduledTask) Record(started, ended time.Time, err error) {
	t.LastRun = started
	t.NextRun = ended.Add(t.Interval)
	t.Runs++
	if err != nil {
		t.LastError = err.Error()
		return
	}
	t.LastError = ""
	t.LastSuccess = ended
}

// Task IDs for built-in tasks.
const (
	// TaskIDGossip polls peers for their sequence vectors.
	TaskIDGossip = "gossip"

	// TaskIDAntiEntropy wakes the reconciler even when no vector advanced.
	TaskIDAntiEntropy = "anti-entropy"
)
