// Package daemon wires the execution runner, task pipeline, and metadata
// services together behind a single-instance lock and exposes them over a
// local HTTP API.
package daemon
