package workflow

import "time"

// Stats summarizes one orchestrator run.
type Stats struct {
	// Selected is the size of the resolved work set.
	Selected int
	// Completed counts items that reached a written transcript this run.
	Completed int
	// Failed counts items whose pipeline attempt failed this run.
	Failed int
	// Skipped counts already-completed items selected without force.
	Skipped int
	// Exhausted counts failed items that have no retry budget left.
	Exhausted int
	// Elapsed is the wall clock of the whole run.
	Elapsed time.Duration
}

// HasFailures reports whether the run should exit with the partial-failure
// status code.
func (s Stats) HasFailures() bool {
	return s.Failed > 0
}
