package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Bind-Forward/port/application/output"
	"github.com/Bind-Forward/port/domain/entities"
	domainerrors "github.com/Bind-Forward/port/domain/errors"
	"github.com/Bind-Forward/port/domain/ports"
	"github.com/Bind-Forward/port/infrastructure/fetch"
	portlog "github.com/Bind-Forward/port/log"
	"github.com/Bind-Forward/port/worker"
)

// Sentinel errors returned by the Controller.
var (
	ErrNotReady          = errors.New("model is not ready")
	ErrClosed            = errors.New("controller is closed")
	ErrAlreadyConfigured = errors.New("controller already has a model")
)

// initID is the id of the one Init a controller sends.
const initID uint64 = 1

// Controller owns one schema and its model. It sends the Init, turns bound
// input values into Calls and routes the replies.
type Controller struct {
	cfg    config
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    entities.HostState
	schema   *entities.Schema
	sources  map[string]ports.InputSource
	sess     session
	failure  error
	inflight map[uint64]struct{}
	legacyQ  []uint64

	nextID    atomic.Uint64
	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	doneOnce  sync.Once
	wg        sync.WaitGroup
}

// New creates a Controller with no model.
func New(opts ...Option) *Controller {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.fetcher == nil {
		if f, err := fetch.New(fetch.WithLogger(cfg.logger)); err == nil {
			cfg.fetcher = f
		} else {
			cfg.logger.Warn("host: default fetcher unavailable", "error", err)
		}
	}
	if cfg.loader == nil {
		cfg.loader = NewLoader(WithSchemaFetcher(cfg.fetcher))
	}
	if cfg.dialer == nil {
		cfg.dialer = InProcess(cfg.runtimeOptions()...)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		sources:  map[string]ports.InputSource{},
		inflight: map[uint64]struct{}{},
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
	c.nextID.Store(initID)
	return c
}

// runtimeOptions configures runtimes the controller creates.
func (c config) runtimeOptions() []worker.Option {
	opts := []worker.Option{worker.WithLogger(c.logger)}
	if c.fetcher != nil {
		opts = append(opts, worker.WithFetcher(c.fetcher))
	}
	return append(opts, c.workerOpts...)
}

// InitializeFrom loads the schema document at location and initializes the
// model it describes.
func (c *Controller) InitializeFrom(ctx context.Context, location string) error {
	schema, err := c.cfg.loader.Load(ctx, location, c.cfg.vars)
	if err != nil {
		return err
	}
	return c.Initialize(ctx, schema, location)
}

// Initialize prepares the model of schema. A relative model location is
// resolved against schemaURL. Isolated models are loaded by a worker over
// the configured dialer; the others in process. Initialize returns once the
// Init is sent; use Ready or WaitReady to learn when the model loaded.
func (c *Controller) Initialize(ctx context.Context, schema *entities.Schema, schemaURL string) error {
	schema.Normalize()
	ResolveModelLocation(schema, schemaURL)
	desc := schema.Descriptor()
	if err := entities.ValidateDescriptor(desc); err != nil {
		return &domainerrors.LoadError{Source: desc.SourceLocation, Err: err}
	}

	c.mu.Lock()
	switch c.state {
	case entities.HostClosed:
		c.mu.Unlock()
		return ErrClosed
	case entities.HostUnconfigured:
	default:
		c.mu.Unlock()
		return ErrAlreadyConfigured
	}
	c.schema = schema
	c.state = entities.HostAwaitingModelReady
	c.mu.Unlock()

	sess, err := c.open(ctx, desc)
	if err != nil {
		c.fail(err)
		return err
	}

	c.mu.Lock()
	if c.state == entities.HostClosed {
		c.mu.Unlock()
		_ = sess.close()
		return ErrClosed
	}
	c.sess = sess
	c.mu.Unlock()

	c.cfg.logger.InfoContext(ctx, "host: initializing model", "model", desc.Label(), "isolated", desc.Isolation)
	if err := sess.send(ctx, entities.InitMessage(initID, desc)); err != nil {
		err = fmt.Errorf("send init: %w", err)
		c.fail(err)
		return err
	}
	return nil
}

func (c *Controller) open(ctx context.Context, desc entities.ModelDescriptor) (session, error) {
	if !desc.Isolation {
		rt := worker.New(c.cfg.runtimeOptions()...)
		return newLocalSession(c.ctx, rt, c.deliver, c.cfg.logger), nil
	}

	ch, err := c.cfg.dialer.Dial(c.ctx)
	if err != nil {
		return nil, fmt.Errorf("open worker channel: %w", err)
	}
	if ctx.Err() != nil {
		_ = ch.Close()
		return nil, ctx.Err()
	}
	rs := newRemoteSession(ch, c.cfg.dialect, c.cfg.logger)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := rs.receive(c.ctx, c.deliver)
		c.lost(err)
	}()
	return rs, nil
}

// Bind registers the source of one input. Binding again replaces it.
func (c *Controller) Bind(name string, src ports.InputSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[name] = src
}

// BindAll registers several input sources.
func (c *Controller) BindAll(sources map[string]ports.InputSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, src := range sources {
		c.sources[name] = src
	}
}

// Run reads every declared input and sends one Call. It returns the call id
// without waiting for the reply, or ErrNotReady until the model has loaded.
func (c *Controller) Run(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	state, schema, sess := c.state, c.schema, c.sess
	sources := make(map[string]ports.InputSource, len(c.sources))
	for k, v := range c.sources {
		sources[k] = v
	}
	c.mu.Unlock()

	switch state {
	case entities.HostReady:
	case entities.HostClosed:
		return 0, ErrClosed
	default:
		return 0, ErrNotReady
	}

	payload, err := collect(ctx, schema, sources)
	if err != nil {
		return 0, err
	}

	msg := entities.CallMessage(c.nextID.Add(1), payload)
	if c.cfg.callTimeout > 0 {
		msg.TimeoutMs = c.cfg.callTimeout.Milliseconds()
	}

	c.mu.Lock()
	c.inflight[msg.ID] = struct{}{}
	if c.cfg.dialect == entities.DialectLegacy {
		c.legacyQ = append(c.legacyQ, msg.ID)
	}
	c.mu.Unlock()

	if err := sess.send(ctx, msg); err != nil {
		c.mu.Lock()
		delete(c.inflight, msg.ID)
		c.dropLegacyLocked(msg.ID)
		c.mu.Unlock()
		return 0, fmt.Errorf("send call %d: %w", msg.ID, err)
	}
	c.cfg.logger.DebugContext(ctx, "host: call sent", "id", msg.ID)
	return msg.ID, nil
}

// collect reads the inputs in schema order. Positional models get the
// values as a list, single-object models a mapping by input name. An
// unbound input falls back to its declared default.
func collect(ctx context.Context, schema *entities.Schema, sources map[string]ports.InputSource) (entities.CallPayload, error) {
	values := make([]any, 0, len(schema.Inputs))
	params := make(map[string]any, len(schema.Inputs))
	for _, in := range schema.Inputs {
		var v any
		if src, ok := sources[in.Name]; ok {
			var err error
			v, err = src.Value(ctx)
			if err != nil {
				return entities.CallPayload{}, fmt.Errorf("input %q: %w", in.Name, err)
			}
		} else if in.Default != nil {
			v = in.Default
		} else {
			return entities.CallPayload{}, fmt.Errorf("input %q has no source and no default", in.Name)
		}
		values = append(values, v)
		params[in.Name] = v
	}
	if schema.Model.Container == "args" {
		return entities.PositionalPayload(values...), nil
	}
	return entities.ObjectPayload(params), nil
}

// Notify tells the controller an input changed. It runs the model when the
// schema asks for autorun or the input is reactive, reporting whether it
// did.
func (c *Controller) Notify(ctx context.Context, input string) (uint64, bool, error) {
	c.mu.Lock()
	schema := c.schema
	c.mu.Unlock()
	if schema == nil {
		return 0, false, ErrNotReady
	}

	spec, ok := schema.Input(input)
	if !ok {
		return 0, false, fmt.Errorf("unknown input %q", input)
	}
	if !schema.Model.Autorun && !spec.Reactive {
		return 0, false, nil
	}
	id, err := c.Run(ctx)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// Cancel asks the model to abandon call id. The call still gets its one
// terminal reply.
func (c *Controller) Cancel(ctx context.Context, id uint64) error {
	c.mu.Lock()
	sess := c.sess
	_, known := c.inflight[id]
	c.mu.Unlock()
	if sess == nil {
		return ErrNotReady
	}
	if !known {
		return fmt.Errorf("no call %d in flight", id)
	}
	return sess.send(ctx, entities.CancelMessage(id))
}

// Ready is closed once the model has loaded.
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// WaitReady blocks until the model has loaded, failed to load or ctx ends.
func (c *Controller) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.failure != nil {
			return c.failure
		}
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State reports the lifecycle state.
func (c *Controller) State() entities.HostState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Schema returns the schema passed to Initialize.
func (c *Controller) Schema() *entities.Schema {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schema
}

// Close terminates the session and stops the worker.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.state == entities.HostClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = entities.HostClosed
	sess := c.sess
	c.mu.Unlock()

	var err error
	if sess != nil {
		err = sess.close()
	}
	c.cancel()
	c.wg.Wait()
	c.doneOnce.Do(func() { close(c.done) })
	return err
}

// deliver is the reply demultiplexer.
func (c *Controller) deliver(msg entities.Message) {
	ctx := c.ctx
	if msg.Dialect == entities.DialectLegacy {
		msg = c.assignLegacyID(msg)
	}

	switch msg.Kind {
	case entities.MessageStatus:
		c.onStatus(ctx, msg)
	case entities.MessageResult:
		if !c.settle(msg.ID) {
			c.cfg.logger.WarnContext(ctx, "host: result for unknown call", "id", msg.ID)
			return
		}
		c.onResult(ctx, msg)
	case entities.MessageError:
		if msg.ID == initID && c.State() == entities.HostAwaitingModelReady {
			c.cfg.logger.ErrorContext(ctx, "host: model failed to load", "error", msg.Error)
			c.fail(domainerrors.FromDetail(msg.Error))
			c.notifyError(msg.ID, msg.Error)
			return
		}
		c.settle(msg.ID)
		c.cfg.logger.ErrorContext(ctx, "host: call failed", "id", msg.ID, "error", msg.Error)
		c.notifyError(msg.ID, msg.Error)
	case entities.MessageLog:
		if msg.Log != nil {
			portlog.Replay(ctx, c.cfg.logger, "worker", *msg.Log)
		}
	default:
		c.cfg.logger.WarnContext(ctx, "host: unexpected reply", "kind", msg.Kind, "id", msg.ID)
	}
}

// assignLegacyID gives an untagged reply the id it answers. Status events
// answer the Init; results and errors answer the oldest call, since a
// legacy worker answers in order.
func (c *Controller) assignLegacyID(msg entities.Message) entities.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.Kind == entities.MessageStatus {
		msg.ID = initID
		return msg
	}
	if c.state == entities.HostAwaitingModelReady {
		msg.ID = initID
		return msg
	}
	if len(c.legacyQ) > 0 {
		msg.ID = c.legacyQ[0]
		c.legacyQ = c.legacyQ[1:]
	}
	return msg
}

func (c *Controller) onStatus(ctx context.Context, msg entities.Message) {
	if msg.Status == entities.StatusLoaded {
		c.mu.Lock()
		switch c.state {
		case entities.HostAwaitingModelReady:
			c.state = entities.HostReady
			c.mu.Unlock()
			c.readyOnce.Do(func() { close(c.ready) })
			c.cfg.logger.InfoContext(ctx, "host: model ready")
		case entities.HostReady:
			c.mu.Unlock()
			if msg.Dialect == entities.DialectLegacy {
				// A model result shaped like the status marker reads as a
				// status event in the untagged dialect.
				err := &domainerrors.ProtocolAmbiguityError{Value: map[string]any{"_status": msg.Status}}
				c.cfg.logger.WarnContext(ctx, "host: ambiguous reply", "error", err)
			}
		default:
			c.mu.Unlock()
		}
	}
	if c.cfg.onStatus != nil {
		c.cfg.onStatus(msg.Status)
	}
}

func (c *Controller) onResult(ctx context.Context, msg entities.Message) {
	if c.cfg.sink != nil {
		if err := c.dispatcher().Dispatch(ctx, msg.Value); err != nil {
			c.cfg.logger.ErrorContext(ctx, "host: rendering result failed", "id", msg.ID, "error", err)
		}
	}
	if c.cfg.onResult != nil {
		c.cfg.onResult(msg.ID, msg.Value)
	}
}

func (c *Controller) dispatcher() *output.Dispatcher {
	c.mu.Lock()
	defer c.mu.Unlock()
	return output.NewDispatcher(c.schema, c.cfg.sink,
		output.WithInputs(c.sources),
		output.WithLogger(c.cfg.logger),
	)
}

func (c *Controller) notifyError(id uint64, detail *entities.ErrorDetail) {
	if c.cfg.onError != nil {
		c.cfg.onError(id, detail)
	}
}

// settle forgets a call that got its terminal reply.
func (c *Controller) settle(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[id]
	delete(c.inflight, id)
	return ok
}

func (c *Controller) dropLegacyLocked(id uint64) {
	for i, q := range c.legacyQ {
		if q == id {
			c.legacyQ = append(c.legacyQ[:i], c.legacyQ[i+1:]...)
			return
		}
	}
}

// fail records a load failure.
func (c *Controller) fail(err error) {
	c.mu.Lock()
	if c.state == entities.HostClosed || c.state == entities.HostFailed {
		c.mu.Unlock()
		return
	}
	c.state = entities.HostFailed
	c.failure = err
	c.mu.Unlock()
	c.doneOnce.Do(func() { close(c.done) })
}

// lost handles the end of the worker channel: the model fails if it never
// loaded, and calls still in flight are answered with the failure.
func (c *Controller) lost(err error) {
	c.mu.Lock()
	state := c.state
	orphans := make([]uint64, 0, len(c.inflight))
	for id := range c.inflight {
		orphans = append(orphans, id)
	}
	c.inflight = map[uint64]struct{}{}
	c.legacyQ = nil
	c.mu.Unlock()

	if state == entities.HostClosed {
		return
	}
	cause := &domainerrors.ProtocolError{Code: "channel_closed", Err: fmt.Errorf("worker channel closed: %w", err)}
	c.cfg.logger.ErrorContext(c.ctx, "host: lost worker", "error", err)
	if state == entities.HostAwaitingModelReady {
		c.fail(&domainerrors.LoadError{Err: cause})
	} else {
		c.mu.Lock()
		if c.state != entities.HostClosed {
			c.state = entities.HostFailed
			c.failure = cause
		}
		c.mu.Unlock()
	}
	for _, id := range orphans {
		c.notifyError(id, cause.ToErrorDetail())
	}
}
