// Package notifications delivers run milestones via ntfy.
//
// The default implementation publishes to the topic configured in config.toml
// and gracefully degrades to a no-op when no topic is set. All workflow code
// depends only on the Service interface, so alternative transports slot in
// without touching the orchestrator.
package notifications
