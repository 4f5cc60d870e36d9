package channel

import (
	"context"
	"io"
	"sync"
)

// inbox queues frames produced by a reader goroutine for Receive. When the
// reader stops, frames already queued are still delivered before the
// terminal error.
type inbox struct {
	frames chan []byte
	done   chan struct{}
	stop   chan struct{}
	err    error

	stopOnce sync.Once
}

func newInbox(buffer int) *inbox {
	return &inbox{
		frames: make(chan []byte, buffer),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
	}
}

// push hands a frame to Receive. It reports false once the inbox is shut.
func (b *inbox) push(frame []byte) bool {
	select {
	case b.frames <- frame:
		return true
	case <-b.stop:
		return false
	}
}

// finish records the reader's terminal error. It must be called once.
func (b *inbox) finish(err error) {
	b.err = err
	close(b.done)
}

// shut makes a blocked push give up and Receive report io.EOF once the
// queue is drained.
func (b *inbox) shut() {
	b.stopOnce.Do(func() { close(b.stop) })
}

func (b *inbox) receive(ctx context.Context) ([]byte, error) {
	select {
	case f := <-b.frames:
		return f, nil
	default:
	}

	select {
	case f := <-b.frames:
		return f, nil
	case <-b.done:
		select {
		case f := <-b.frames:
			return f, nil
		default:
			return nil, b.err
		}
	case <-b.stop:
		select {
		case f := <-b.frames:
			return f, nil
		default:
			return nil, io.EOF
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
