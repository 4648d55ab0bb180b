// Package logging builds the slog loggers used across trawler and hosts
// the in-memory stream hub that fans log events out to API followers.
package logging
