package channel

import (
	"context"
	"io"
	"sync"

	"github.com/Bind-Forward/port/domain/ports"
)

// pipeState is shared by both ends of a pipe.
type pipeState struct {
	closed chan struct{}
	once   sync.Once
}

func (s *pipeState) close() {
	s.once.Do(func() { close(s.closed) })
}

// PipeEnd is one side of an in-memory pipe.
type PipeEnd struct {
	in    <-chan []byte
	out   chan<- []byte
	state *pipeState
}

var _ ports.Channel = (*PipeEnd)(nil)

// NewPipe returns the two connected ends of an in-memory channel. Frames are
// copied on Send. Closing either end closes both; frames already queued are
// still received.
func NewPipe(opts ...Option) (*PipeEnd, *PipeEnd) {
	cfg := buildConfig(opts)
	ab := make(chan []byte, cfg.buffer)
	ba := make(chan []byte, cfg.buffer)
	state := &pipeState{closed: make(chan struct{})}
	return &PipeEnd{in: ba, out: ab, state: state}, &PipeEnd{in: ab, out: ba, state: state}
}

// Send implements ports.Channel.
func (p *PipeEnd) Send(ctx context.Context, frame []byte) error {
	select {
	case <-p.state.closed:
		return ErrClosed
	default:
	}

	f := make([]byte, len(frame))
	copy(f, frame)
	select {
	case p.out <- f:
		return nil
	case <-p.state.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive implements ports.Channel.
func (p *PipeEnd) Receive(ctx context.Context) ([]byte, error) {
	select {
	case f := <-p.in:
		return f, nil
	default:
	}

	select {
	case f := <-p.in:
		return f, nil
	case <-p.state.closed:
		select {
		case f := <-p.in:
			return f, nil
		default:
			return nil, io.EOF
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements ports.Channel.
func (p *PipeEnd) Close() error {
	p.state.close()
	return nil
}
