// Package services holds the failure taxonomy and context plumbing shared by
// the external tool clients under services/ and the workflow orchestrator.
// Stage code wraps collaborator failures with a sentinel marker so the
// orchestrator can classify and persist the failure kind without string
// matching.
package services
