package host

import (
	"context"
	"errors"
	"sync"

	"github.com/Bind-Forward/port/domain/ports"
	"github.com/Bind-Forward/port/infrastructure/channel"
	"github.com/Bind-Forward/port/worker"
)

// Dialer opens the channel to a worker. The channel lives until it is
// closed; ctx bounds the lifetime of anything the dialer starts.
type Dialer interface {
	Dial(ctx context.Context) (ports.Channel, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (ports.Channel, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context) (ports.Channel, error) {
	return f(ctx)
}

// InProcess runs a worker runtime on its own goroutine behind an in-memory
// pipe. Frames are copied, so the worker shares no memory with the host.
func InProcess(opts ...worker.Option) Dialer {
	return DialerFunc(func(ctx context.Context) (ports.Channel, error) {
		rt := worker.New(opts...)
		host, peer := channel.NewPipe()

		ctx, cancel := context.WithCancel(ctx)
		ch := &inprocChannel{PipeEnd: host, cancel: cancel, done: make(chan struct{})}
		go func() {
			defer close(ch.done)
			ch.err = rt.Serve(ctx, peer)
			_ = peer.Close()
			if err := rt.Close(context.WithoutCancel(ctx)); err != nil && ch.err == nil {
				ch.err = err
			}
		}()
		return ch, nil
	})
}

// Process starts the worker binary and speaks newline-delimited JSON over
// its stdio.
func Process(bin string, args []string, opts ...channel.Option) Dialer {
	return DialerFunc(func(ctx context.Context) (ports.Channel, error) {
		return channel.Spawn(ctx, bin, args, opts...)
	})
}

// WebSocket connects to a worker listening at url.
func WebSocket(url string, opts ...channel.Option) Dialer {
	return DialerFunc(func(ctx context.Context) (ports.Channel, error) {
		return channel.Dial(ctx, url, opts...)
	})
}

// inprocChannel stops its worker goroutine on Close. Calls still running
// are abandoned.
type inprocChannel struct {
	*channel.PipeEnd
	cancel context.CancelFunc
	done   chan struct{}
	err    error
	once   sync.Once
}

func (c *inprocChannel) Close() error {
	var err error
	c.once.Do(func() {
		err = c.PipeEnd.Close()
		c.cancel()
		<-c.done
		if c.err != nil && !errors.Is(c.err, context.Canceled) {
			err = errors.Join(err, c.err)
		}
	})
	return err
}
