package interfaces

import "context"

// -----------------------------------------------------------------------------
// IPublisher forwards freshly fetched payloads to an external broker.
// -----------------------------------------------------------------------------

type IPublisher interface {

	// Name identifies the broker in logs
	Name() string

	// -----------------------------------------------------------------------------

	// Publish sends data on the given topic (subject / channel suffix).
	Publish(ctx context.Context, topic string, data []byte) error

	// -----------------------------------------------------------------------------

	// Close releases the broker connection
	Close() error
}
