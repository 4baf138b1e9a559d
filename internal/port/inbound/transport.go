// Package inbound defines the inbound port interfaces for the proxy core.
// Inbound adapters (HTTP) implement these.
package inbound

import "context"

// Transport is the inbound port for serving proxy traffic.
type Transport interface {
	// Start begins accepting inbound requests.
	// Blocks until the context is cancelled or an error occurs.
	// Returns nil on graceful shutdown, error on failure.
	Start(ctx context.Context) error

	// Close gracefully shuts down the transport and cleans up resources.
	Close() error
}
