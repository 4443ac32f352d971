// Package catalog defines the discovered session model and an offline SQLite
// snapshot of the most recent discovery. The catalog is ephemeral by design:
// discovery rebuilds it from the listing site each run, and the cache only
// exists so selection and status keep working when the site is unreachable.
package catalog
