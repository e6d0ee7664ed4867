// Package results persists one timestamped JSON report per command
// invocation so every run leaves an audit trail on disk.
package results
