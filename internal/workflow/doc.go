// Package workflow advances selected catalog items through the processing
// pipeline.
//
// The Orchestrator feeds the resolved work set into a bounded worker pool and
// walks each item through the fetch, convert and transcribe stage handlers,
// persisting the progress record after every transition. Pipeline failures
// are classified and recorded per item while the run continues; only progress
// store write failures abort a run. Run-level notifications fire when
// processing starts and completes.
//
// Add new lifecycle stages by extending the stage list in New and the status
// enum in internal/progress; this package is the authoritative home for that
// coordination logic.
package workflow
