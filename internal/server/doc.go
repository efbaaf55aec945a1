// Package server runs the ops HTTP endpoint of the sync daemon and shuts it
// down gracefully when the run context ends.
package server
