// Command trawler is the CLI for a running trawler daemon: it submits
// task executions, inspects them, streams their logs, and resolves
// ad-hoc title queries.
package main
