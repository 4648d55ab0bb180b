// Package metadata resolves a title query to its best database match.
// It fronts the search client with an optional result cache, scores the
// candidates, and hands them to the resolver.
package metadata
