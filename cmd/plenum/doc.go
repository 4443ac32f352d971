// Package main hosts the plenum CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into catalog
// discovery, pipeline runs over selected sessions, progress inspection, retry
// bookkeeping, and configuration scaffolding. It centralizes configuration
// resolution, the cross-process run lock, and structured logging setup so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
