package channel

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Bind-Forward/port/domain/ports"
)

// Stream is a newline-delimited frame channel over a reader and a writer,
// typically a worker's stdin and stdout. Frames must not contain raw
// newlines; JSON encoding guarantees that.
type Stream struct {
	w      io.Writer
	closer []io.Closer
	inbox  *inbox

	mu     sync.Mutex
	closed bool
}

var _ ports.Channel = (*Stream)(nil)

// NewStream starts reading frames from r. Close closes r and w when they
// implement io.Closer.
func NewStream(r io.Reader, w io.Writer, opts ...Option) *Stream {
	cfg := buildConfig(opts)
	s := &Stream{w: w, inbox: newInbox(cfg.buffer)}
	if c, ok := w.(io.Closer); ok {
		s.closer = append(s.closer, c)
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = append(s.closer, c)
	}
	go s.readLoop(r, cfg.maxFrameSize)
	return s
}

func (s *Stream) readLoop(r io.Reader, limit int) {
	scanner := bufio.NewScanner(r)
	// Scanner grows up to the larger of the initial capacity and limit.
	scanner.Buffer(make([]byte, 0, min(64*1024, limit)), limit)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		f := make([]byte, len(line))
		copy(f, line)
		if !s.inbox.push(f) {
			s.inbox.finish(io.EOF)
			return
		}
	}

	err := scanner.Err()
	switch {
	case err == nil, errors.Is(err, io.ErrClosedPipe), errors.Is(err, io.EOF):
		err = io.EOF
	case errors.Is(err, bufio.ErrTooLong):
		err = fmt.Errorf("%w (%d bytes)", ErrFrameTooLarge, limit)
	default:
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			err = io.EOF
		}
	}
	s.inbox.finish(err)
}

// Send writes frame followed by a newline.
func (s *Stream) Send(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bytes.IndexByte(frame, '\n') >= 0 {
		return fmt.Errorf("frame contains a newline")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	buf := make([]byte, 0, len(frame)+1)
	buf = append(buf, frame...)
	buf = append(buf, '\n')
	if _, err := s.w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Receive returns the next frame, or io.EOF once the reader is exhausted.
func (s *Stream) Receive(ctx context.Context) ([]byte, error) {
	return s.inbox.receive(ctx)
}

// Close closes the underlying reader and writer.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.inbox.shut()
	var errs []error
	for _, c := range s.closer {
		if err := c.Close(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
