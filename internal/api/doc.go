// Package api defines the wire types shared by the daemon's HTTP server
// and the CLI client.
package api
