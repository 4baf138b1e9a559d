// Package outbound defines the outbound port interfaces for the proxy core.
// Adapters implement these to connect the core to remote collaborators.
package outbound

import "context"

// SecretStore is the outbound port for fetching secret material from a
// remote secret store. Implementations return the raw secret value; binary
// secrets are decoded by the adapter before they reach the core.
type SecretStore interface {
	// Fetch retrieves the secret named name from the given region.
	// An empty region means the store's default region.
	Fetch(ctx context.Context, name, region string) (string, error)
}
