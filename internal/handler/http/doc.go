// Package http implements the ops endpoint of the sync daemon.
//
// It exposes health, outbox and status views of a running sync engine and
// lets an operator trigger a hydration on demand. Request tracing and access
// logging are handled by middleware in this package.
package http
