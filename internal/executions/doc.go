// Package executions tracks asynchronous task runs. Records live only in
// memory; a daemon restart forgets them, and clients are expected to
// resubmit rather than resume.
package executions
