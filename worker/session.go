package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Bind-Forward/port/domain/entities"
	domainerrors "github.com/Bind-Forward/port/domain/errors"
	"github.com/Bind-Forward/port/domain/ports"
	portlog "github.com/Bind-Forward/port/log"
	"github.com/Bind-Forward/port/wireformat"
	slogmulti "github.com/samber/slog-multi"
)

// Protocol error codes sent by the worker.
const (
	CodeAlreadyInitialized = "already_initialized"
	CodeNotInitialized     = "not_initialized"
	CodeMalformedFrame     = "malformed_frame"
	CodeUnexpectedKind     = "unexpected_kind"
	CodeMissingModel       = "missing_model"
	CodeDuplicateCall      = "duplicate_call"
)

const (
	dialectUnknown int32 = iota
	dialectTagged
	dialectLegacy
)

// session is the state of one channel: at most one model and the calls
// addressed to it.
type session struct {
	rt      *Runtime
	ch      ports.Channel
	dec     *wireformat.Decoder
	logger  *slog.Logger
	sendCtx context.Context

	dialect atomic.Int32
	sendMu  sync.Mutex

	mu       sync.Mutex
	state    entities.WorkerState
	initID   uint64
	label    string
	model    Model
	loadErr  *entities.ErrorDetail
	pending  []entities.Message
	running  map[uint64]context.CancelCauseFunc
	legacyID uint64

	wake     chan struct{}
	sem      chan struct{}
	wg       sync.WaitGroup
	inflight sync.WaitGroup
}

func newSession(sendCtx context.Context, r *Runtime, ch ports.Channel) *session {
	s := &session{
		rt:      r,
		ch:      ch,
		dec:     wireformat.NewDecoder(wireformat.ToWorker),
		logger:  r.cfg.logger,
		sendCtx: sendCtx,
		running: map[uint64]context.CancelCauseFunc{},
		wake:    make(chan struct{}, 1),
		sem:     make(chan struct{}, r.cfg.maxConcurrent),
	}
	if r.cfg.forwardLogs {
		fwd := portlog.NewForwardHandler(s.forward, portlog.WithLevel(r.cfg.forwardLevel))
		s.logger = slog.New(slogmulti.Fanout(r.cfg.logger.Handler(), fwd))
	}
	return s
}

func (s *session) readLoop(ctx context.Context) error {
	for {
		frame, err := s.ch.Receive(ctx)
		if err != nil {
			return err
		}

		msg, err := s.dec.Decode(frame)
		if err != nil {
			s.logger.WarnContext(ctx, "worker: dropping malformed frame", "error", err)
			s.reply(entities.ErrorMessage(0, (&domainerrors.ProtocolError{Code: CodeMalformedFrame, Err: err}).ToErrorDetail()))
			continue
		}
		if s.dec.Dialect() == entities.DialectLegacy {
			s.dialect.Store(dialectLegacy)
		} else {
			s.dialect.Store(dialectTagged)
		}
		s.handle(ctx, msg)
	}
}

func (s *session) handle(ctx context.Context, msg entities.Message) {
	switch msg.Kind {
	case entities.MessageInit:
		s.handleInit(ctx, msg)
	case entities.MessageCall:
		s.handleCall(ctx, msg)
	case entities.MessageCancel:
		s.handleCancel(ctx, msg)
	default:
		s.reply(protocolError(msg.ID, CodeUnexpectedKind, fmt.Errorf("worker does not accept %s messages", msg.Kind)))
	}
}

func (s *session) handleInit(ctx context.Context, msg entities.Message) {
	if msg.Model == nil {
		s.reply(protocolError(msg.ID, CodeMissingModel, errors.New("init without model descriptor")))
		return
	}

	s.mu.Lock()
	if s.state != entities.WorkerUninitialized {
		state := s.state
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "worker: rejecting second init", "id", msg.ID, "state", state)
		s.reply(protocolError(msg.ID, CodeAlreadyInitialized, fmt.Errorf("model already initialized (%s)", state)))
		return
	}
	s.initID = msg.ID
	s.label = msg.Model.Normalized().Label()
	s.setStateLocked(entities.WorkerLoading)
	s.mu.Unlock()

	s.inflight.Add(1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inflight.Done()
		s.load(ctx, *msg.Model)
	}()
}

func (s *session) load(ctx context.Context, d entities.ModelDescriptor) {
	start := time.Now()
	model, err := s.rt.Load(ctx, d)

	s.mu.Lock()
	if err != nil {
		detail := domainerrors.ToErrorDetail(err)
		s.loadErr = detail
		s.setStateLocked(entities.WorkerFailed)
		queued := s.pending
		s.pending = nil
		s.mu.Unlock()

		s.logger.ErrorContext(ctx, "worker: model failed to load", "model", s.label, "error", err)
		s.reply(entities.ErrorMessage(s.initID, detail))
		for _, call := range queued {
			s.finish(call.ID, entities.Failure(detail))
		}
		return
	}
	s.model = model
	s.setStateLocked(entities.WorkerReady)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "worker: model loaded", "model", s.label, "duration", time.Since(start))
	s.reply(entities.StatusMessage(s.initID, entities.StatusLoaded))

	s.wg.Add(1)
	go s.dispatchLoop(ctx)
}

func (s *session) handleCall(ctx context.Context, msg entities.Message) {
	if msg.Payload == nil {
		p := entities.ObjectPayload(nil)
		msg.Payload = &p
	}

	s.mu.Lock()
	if msg.Dialect == entities.DialectLegacy {
		s.legacyID++
		msg.ID = s.legacyID
	}
	switch s.state {
	case entities.WorkerUninitialized:
		s.mu.Unlock()
		s.reply(protocolError(msg.ID, CodeNotInitialized, errors.New("call before init")))
		return
	case entities.WorkerFailed:
		detail := s.loadErr
		s.mu.Unlock()
		s.reply(entities.ErrorMessage(msg.ID, detail))
		return
	}
	if s.knownLocked(msg.ID) {
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "worker: duplicate call id", "id", msg.ID)
		s.reply(protocolError(msg.ID, CodeDuplicateCall, fmt.Errorf("call %d is already in flight", msg.ID)))
		return
	}
	s.pending = append(s.pending, msg)
	s.inflight.Add(1)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *session) knownLocked(id uint64) bool {
	if _, ok := s.running[id]; ok {
		return true
	}
	for _, p := range s.pending {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (s *session) handleCancel(ctx context.Context, msg entities.Message) {
	id := msg.ID
	s.mu.Lock()
	for i, p := range s.pending {
		if p.ID == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			s.mu.Unlock()
			s.finish(id, entities.Failure((&domainerrors.CanceledError{ID: id}).ToErrorDetail()))
			return
		}
	}
	cancel, ok := s.running[id]
	s.mu.Unlock()

	if !ok {
		s.logger.DebugContext(ctx, "worker: cancel for unknown call", "id", id)
		return
	}
	cancel(&domainerrors.CanceledError{ID: id})
}

// dispatchLoop starts queued calls in arrival order, at most maxConcurrent
// at a time. A slot is held until the model returns, so a model that ignores
// its cancellation still counts against the limit after its call was
// answered.
func (s *session) dispatchLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-ctx.Done():
				return
			}
		}
		msg := s.pending[0]
		s.pending = s.pending[1:]
		callCtx, cancel := context.WithCancelCause(ctx)
		s.running[msg.ID] = cancel
		s.mu.Unlock()

		select {
		case s.sem <- struct{}{}:
		case <-callCtx.Done():
			// Canceled while waiting for a slot, or the session ended.
			s.complete(msg.ID)
			s.finish(msg.ID, entities.Failure(domainerrors.ToErrorDetail(context.Cause(callCtx))))
			if ctx.Err() != nil {
				return
			}
			continue
		}

		// The timeout runs from the moment the call gets its slot.
		timed, stop := s.callContext(callCtx, msg)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer stop()
			s.execute(timed, msg)
		}()
	}
}

// callContext applies the call's own timeout, or the runtime default.
func (s *session) callContext(ctx context.Context, msg entities.Message) (context.Context, context.CancelFunc) {
	timeout := s.rt.cfg.callTimeout
	if msg.TimeoutMs > 0 {
		timeout = time.Duration(msg.TimeoutMs) * time.Millisecond
	}
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeoutCause(ctx, timeout, &domainerrors.TimeoutError{
		Operation: "call",
		Target:    fmt.Sprint(msg.ID),
		Duration:  timeout,
	})
}

func (s *session) execute(ctx context.Context, msg entities.Message) {
	start := time.Now()
	outcome, returned := invoke(ctx, s.model, s.label, *msg.Payload)
	s.complete(msg.ID)

	// The slot is released once the model returns, not when the reply goes
	// out.
	go func() {
		<-returned
		<-s.sem
	}()

	outcome = outcome.WithTiming(entities.NewCallTiming(start, time.Now()))
	if outcome.IsFailure() {
		s.logger.WarnContext(ctx, "worker: call failed", "id", msg.ID, "error", outcome.Error)
	} else {
		s.logger.DebugContext(ctx, "worker: call finished", "id", msg.ID, "duration", outcome.Timing.Duration)
	}
	s.finish(msg.ID, outcome)
}

// complete forgets a running call and releases its context.
func (s *session) complete(id uint64) {
	s.mu.Lock()
	cancel := s.running[id]
	delete(s.running, id)
	s.mu.Unlock()
	if cancel != nil {
		cancel(nil)
	}
}

// finish sends the terminal reply of an accepted call.
func (s *session) finish(id uint64, o entities.Outcome) {
	s.reply(o.Reply(id))
	s.inflight.Done()
}

// drain waits until the model has loaded and every accepted call has been
// answered, or ctx ends.
func (s *session) drain(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// shutdown answers calls that never started and releases the model.
func (s *session) shutdown(ctx context.Context) {
	s.wg.Wait()

	s.mu.Lock()
	queued := s.pending
	s.pending = nil
	model := s.model
	s.mu.Unlock()

	for _, call := range queued {
		s.finish(call.ID, entities.Failure((&domainerrors.CanceledError{ID: call.ID}).ToErrorDetail()))
	}
	if model != nil {
		if err := model.Close(ctx); err != nil {
			s.logger.WarnContext(ctx, "worker: closing model failed", "error", err)
		}
	}
}

func (s *session) setStateLocked(state entities.WorkerState) {
	s.state = state
	if s.rt.cfg.stateHook != nil {
		s.rt.cfg.stateHook(state)
	}
}

func (s *session) currentDialect() entities.Dialect {
	if s.dialect.Load() == dialectLegacy {
		return entities.DialectLegacy
	}
	return entities.DialectTagged
}

// reply encodes msg in the session's dialect and sends it. Transport
// failures are logged without forwarding.
func (s *session) reply(msg entities.Message) {
	if err := s.send(msg); err != nil {
		s.rt.cfg.logger.Warn("worker: failed to send reply", "kind", msg.Kind, "id", msg.ID, "error", err)
	}
}

func (s *session) send(msg entities.Message) error {
	frame, err := wireformat.Encode(msg, s.currentDialect())
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.ch.Send(s.sendCtx, frame)
}

// forward sends a log record to the host once the session is known to
// speak the tagged dialect.
func (s *session) forward(_ context.Context, rec entities.LogRecord) error {
	if s.dialect.Load() != dialectTagged {
		return nil
	}
	return s.send(entities.Message{Kind: entities.MessageLog, Log: &rec})
}

func protocolError(id uint64, code string, err error) entities.Message {
	return entities.ErrorMessage(id, (&domainerrors.ProtocolError{Code: code, Err: err}).ToErrorDetail())
}
