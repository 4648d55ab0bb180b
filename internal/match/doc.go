// Package match scores external search candidates against a free-text
// query and reduces them to a single best match, an ambiguous set, or no
// match at all.
package match
