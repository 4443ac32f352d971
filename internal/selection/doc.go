// Package selection resolves operator selection expressions against the
// discovered catalog and the progress snapshot. Resolution is pure: it never
// touches the store or the network, which keeps its grammar and edge cases
// fully table-testable.
package selection
