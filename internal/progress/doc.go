// Package progress owns the durable per-item pipeline state: the record
// model and its status machine, the JSON progress store with atomic
// full-replace writes, the retry eligibility policy, and the cross-process
// run lock. Everything the orchestrator persists flows through this package,
// one serialized write at a time.
package progress
