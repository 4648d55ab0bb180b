// Package task implements the work one execution performs: fetch entries
// from a task's configured inputs, filter them through accept/reject
// patterns, and enrich the survivors with metadata lookups.
package task
