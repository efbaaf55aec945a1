package server

import "context"

// Server defines the lifecycle of a transport server managed by this package.
type Server interface {
	// RunServer serves requests until ctx is done or the listener fails.
	RunServer(ctx context.Context) error

	// Shutdown gracefully stops the server.
	Shutdown(ctx context.Context) error
}
