package stream

import (
	"context"
)

// EventError is the SSE event type the server uses for non-terminal errors.
// The connection stays up and the manager takes no action.
const EventError = "error"

// Frame is one event read from a live connection.
type Frame struct {
	Event string // Empty for plain message events
	Data  []byte // data: lines joined with "\n"
}

// Conn is one open live connection.
type Conn interface {
	// Next blocks until the next frame. Any error is terminal: the connection
	// will not recover on its own.
	Next() (Frame, error)

	// Close releases the connection and unblocks Next. Safe to call twice.
	Close() error
}

// Source opens live connections for an entity.
type Source interface {
	// Open connects to the live feed of entityID. A returned error is treated
	// as a terminal error of the new connection. Cancelling ctx aborts both
	// the open and the connection.
	Open(ctx context.Context, entityID string) (Conn, error)
}
