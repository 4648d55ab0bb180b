// Package client provides the HTTP client the CLI uses to talk to a
// running trawler daemon.
package client
