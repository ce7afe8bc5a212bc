package pubsub

import (
	"context"
	"encoding/json"
)

// ConnectionHandle is the abstract transport contract: an inbound item
// source, an outbound frame sink, an asynchronous error signal, and
// explicit shutdown. Any transport (WebSocket, IPC, HTTP-stream) that
// honors this contract can back the service.
type ConnectionHandle interface {
	// FromSocket returns the channel of parsed inbound items. It is closed
	// when the peer disconnects or the transport fails non-recoverably.
	FromSocket() <-chan Item

	// Send writes a pre-serialized frame to the backend. It returns an
	// error only if the transport task is gone.
	Send(frame json.RawMessage) error

	// Err fires once when the transport detects an asynchronous fault,
	// distinct from FromSocket closing; either may happen first.
	Err() <-chan error

	// Shutdown releases the transport's resources. Idempotent.
	Shutdown()
}

// Connector establishes and re-establishes a ConnectionHandle.
type Connector interface {
	// Connect performs the initial connection. Failure here is fatal to
	// Dial and is propagated to the caller.
	Connect(ctx context.Context) (ConnectionHandle, error)

	// TryReconnect produces a new backend after the previous one failed.
	// Failure here is fatal to the service. A Connector may apply its own
	// retry/backoff policy internally before returning an error.
	TryReconnect(ctx context.Context) (ConnectionHandle, error)
}
