package interfaces

// -----------------------------------------------------------------------------
// ISubscriber is one live streaming connection as seen by the broadcast scheduler.
// -----------------------------------------------------------------------------

type ISubscriber interface {

	// ID uniquely identifies the connection for its whole lifetime.
	ID() string

	// -----------------------------------------------------------------------------

	// Push queues an encoded payload for delivery. It must not block; a
	// closed or saturated connection returns an error.
	Push(data []byte) error
}
