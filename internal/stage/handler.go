package stage

import "context"

// Handler describes the contract the workflow orchestrator needs from each
// pipeline stage. Prepare validates inputs and reserves paths; Execute does
// the work and mutates the task. Both must honor context cancellation.
type Handler interface {
	Prepare(context.Context, *Task) error
	Execute(context.Context, *Task) error
	HealthCheck(context.Context) Health
}
