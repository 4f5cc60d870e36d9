package ports

import "context"

// Channel is a bidirectional, ordered, message-framed byte transport between
// a host and a worker. Each Send delivers exactly one frame to the peer's
// Receive. Implementations copy frames so the two sides never share memory.
type Channel interface {
	// Send delivers one frame. It blocks until the frame is accepted by the
	// transport or ctx is done.
	Send(ctx context.Context, frame []byte) error

	// Receive blocks until the next frame arrives, the channel closes
	// (io.EOF) or ctx is done.
	Receive(ctx context.Context) ([]byte, error)

	// Close releases the transport. Pending Receive calls return io.EOF.
	Close() error
}
