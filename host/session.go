package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Bind-Forward/port/domain/entities"
	domainerrors "github.com/Bind-Forward/port/domain/errors"
	"github.com/Bind-Forward/port/domain/ports"
	"github.com/Bind-Forward/port/wireformat"
	"github.com/Bind-Forward/port/worker"
)

// session carries requests to one model and hands its replies to deliver.
type session interface {
	send(ctx context.Context, msg entities.Message) error
	close() error
}

// remoteSession talks to a worker over a channel.
type remoteSession struct {
	ch      ports.Channel
	dec     *wireformat.Decoder
	dialect entities.Dialect
	logger  *slog.Logger
	mu      sync.Mutex
}

func newRemoteSession(ch ports.Channel, dialect entities.Dialect, logger *slog.Logger) *remoteSession {
	return &remoteSession{
		ch:      ch,
		dec:     wireformat.NewDialectDecoder(wireformat.ToHost, dialect),
		dialect: dialect,
		logger:  logger,
	}
}

func (s *remoteSession) send(ctx context.Context, msg entities.Message) error {
	frame, err := wireformat.Encode(msg, s.dialect)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.Send(ctx, frame)
}

// receive delivers replies until the channel fails or ctx ends.
func (s *remoteSession) receive(ctx context.Context, deliver func(entities.Message)) error {
	for {
		frame, err := s.ch.Receive(ctx)
		if err != nil {
			return err
		}
		msg, err := s.dec.Decode(frame)
		if err != nil {
			s.logger.WarnContext(ctx, "host: dropping undecodable reply", "error", err)
			continue
		}
		deliver(msg)
	}
}

func (s *remoteSession) close() error {
	return s.ch.Close()
}

// localSession runs a non-isolated model in the host process through the
// worker's loader, with the same reply semantics as a remote worker.
type localSession struct {
	rt      *worker.Runtime
	deliver func(entities.Message)
	logger  *slog.Logger
	ctx     context.Context
	stop    context.CancelFunc

	mu      sync.Mutex
	model   worker.Model
	label   string
	running map[uint64]context.CancelCauseFunc
	wg      sync.WaitGroup
}

func newLocalSession(ctx context.Context, rt *worker.Runtime, deliver func(entities.Message), logger *slog.Logger) *localSession {
	ctx, stop := context.WithCancel(ctx)
	return &localSession{
		rt:      rt,
		deliver: deliver,
		logger:  logger,
		ctx:     ctx,
		stop:    stop,
		running: map[uint64]context.CancelCauseFunc{},
	}
}

func (s *localSession) send(_ context.Context, msg entities.Message) error {
	switch msg.Kind {
	case entities.MessageInit:
		if msg.Model == nil {
			return errors.New("init without model descriptor")
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.load(msg.ID, *msg.Model)
		}()
	case entities.MessageCall:
		s.call(msg)
	case entities.MessageCancel:
		s.mu.Lock()
		cancel := s.running[msg.ID]
		s.mu.Unlock()
		if cancel != nil {
			cancel(&domainerrors.CanceledError{ID: msg.ID})
		}
	default:
		return fmt.Errorf("cannot send %s to a model", msg.Kind)
	}
	return nil
}

func (s *localSession) load(id uint64, d entities.ModelDescriptor) {
	m, err := s.rt.Load(s.ctx, d)
	if err != nil {
		s.deliver(entities.ErrorMessage(id, domainerrors.ToErrorDetail(err)))
		return
	}
	s.mu.Lock()
	s.model = m
	s.label = d.Normalized().Label()
	s.mu.Unlock()
	s.deliver(entities.StatusMessage(id, entities.StatusLoaded))
}

func (s *localSession) call(msg entities.Message) {
	s.mu.Lock()
	model, label := s.model, s.label
	if model == nil {
		s.mu.Unlock()
		s.deliver(entities.ErrorMessage(msg.ID, (&domainerrors.ProtocolError{
			Code: worker.CodeNotInitialized,
			Err:  errors.New("call before the model loaded"),
		}).ToErrorDetail()))
		return
	}
	ctx, cancel := context.WithCancelCause(s.ctx)
	s.running[msg.ID] = cancel
	s.mu.Unlock()

	payload := entities.ObjectPayload(nil)
	if msg.Payload != nil {
		payload = *msg.Payload
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		callCtx := ctx
		if msg.TimeoutMs > 0 {
			timeout := time.Duration(msg.TimeoutMs) * time.Millisecond
			var stop context.CancelFunc
			callCtx, stop = context.WithTimeoutCause(ctx, timeout, &domainerrors.TimeoutError{
				Operation: "call",
				Target:    fmt.Sprint(msg.ID),
				Duration:  timeout,
			})
			defer stop()
		}

		outcome := worker.Invoke(callCtx, model, label, payload)

		s.mu.Lock()
		delete(s.running, msg.ID)
		s.mu.Unlock()
		cancel(nil)
		s.deliver(outcome.Reply(msg.ID))
	}()
}

func (s *localSession) close() error {
	s.stop()
	s.wg.Wait()

	s.mu.Lock()
	model := s.model
	s.model = nil
	s.mu.Unlock()

	var errs []error
	if model != nil {
		errs = append(errs, model.Close(context.Background()))
	}
	errs = append(errs, s.rt.Close(context.Background()))
	return errors.Join(errs...)
}
