// Package searchcache persists search results in SQLite so repeated
// lookups for the same title skip the remote site entirely. Entries
// carry a TTL and are pruned lazily on read.
package searchcache
