package worker

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Bind-Forward/port/domain/entities"
	"github.com/Bind-Forward/port/domain/ports"
	"github.com/Bind-Forward/port/infrastructure/channel"
	"github.com/Bind-Forward/port/infrastructure/native"
	starlarkengine "github.com/Bind-Forward/port/infrastructure/starlark"
	"github.com/Bind-Forward/port/internal/testutil"
	"github.com/Bind-Forward/port/wireformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = testutil.Logger()

// harness drives a Runtime over an in-memory pipe from the host side.
type harness struct {
	t       *testing.T
	host    *channel.PipeEnd
	dec     *wireformat.Decoder
	replies map[uint64]entities.Message
	logs    []entities.LogRecord
}

func serve(t *testing.T, opts ...Option) *harness {
	t.Helper()
	rt := New(append([]Option{WithLogger(discard)}, opts...)...)
	host, peer := channel.NewPipe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Serve(ctx, peer) }()
	t.Cleanup(func() {
		cancel()
		_ = host.Close()
		<-done
		_ = rt.Close(context.Background())
	})

	return &harness{
		t:       t,
		host:    host,
		dec:     wireformat.NewDialectDecoder(wireformat.ToHost, entities.DialectTagged),
		replies: map[uint64]entities.Message{},
	}
}

func (h *harness) send(msg entities.Message) {
	h.t.Helper()
	frame, err := wireformat.Encode(msg, entities.DialectTagged)
	require.NoError(h.t, err)
	require.NoError(h.t, h.host.Send(context.Background(), frame))
}

// next returns the next non-log message.
func (h *harness) next(timeout time.Duration) (entities.Message, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for {
		frame, err := h.host.Receive(ctx)
		if err != nil {
			return entities.Message{}, err
		}
		msg, err := h.dec.Decode(frame)
		require.NoError(h.t, err)
		if msg.Kind == entities.MessageLog {
			h.logs = append(h.logs, *msg.Log)
			continue
		}
		return msg, nil
	}
}

// reply waits for the terminal reply of call id, keeping others for later.
func (h *harness) reply(id uint64) entities.Message {
	h.t.Helper()
	for {
		if msg, ok := h.replies[id]; ok {
			delete(h.replies, id)
			return msg
		}
		msg, err := h.next(5 * time.Second)
		require.NoError(h.t, err, "waiting for reply %d", id)
		h.replies[msg.ID] = msg
	}
}

func (h *harness) init(d entities.ModelDescriptor) {
	h.t.Helper()
	h.send(entities.InitMessage(1, d))
	msg := h.reply(1)
	require.Equal(h.t, entities.MessageStatus, msg.Kind, "init failed: %v", msg.Error)
	require.Equal(h.t, entities.StatusLoaded, msg.Status)
}

func (h *harness) call(id uint64, p entities.CallPayload) entities.Message {
	h.t.Helper()
	h.send(entities.CallMessage(id, p))
	return h.reply(id)
}

func inline(kind entities.ModelKind, entry string, style entities.ArgumentStyle) entities.ModelDescriptor {
	return entities.ModelDescriptor{
		Kind:          kind,
		InlineSource:  testutil.ModelSource,
		EntryName:     entry,
		ArgumentStyle: style,
		Isolation:     true,
	}
}

func requireResult(t *testing.T, msg entities.Message, want any) {
	t.Helper()
	require.Equal(t, entities.MessageResult, msg.Kind, "error reply: %v", msg.Error)
	assert.Equal(t, want, msg.Value)
}

func requireError(t *testing.T, msg entities.Message, errType string) *entities.ErrorDetail {
	t.Helper()
	require.Equal(t, entities.MessageError, msg.Kind, "unexpected %s reply: %v", msg.Kind, msg.Value)
	testutil.RequireErrorType(t, msg.Error, errType)
	return msg.Error
}

func TestServe_Kinds(t *testing.T) {
	tests := []struct {
		name    string
		desc    entities.ModelDescriptor
		payload entities.CallPayload
		want    any
	}{
		{
			name:    "positional function",
			desc:    inline(entities.KindFunction, "add", entities.ArgsPositional),
			payload: entities.PositionalPayload(int64(3), int64(4)),
			want:    int64(7),
		},
		{
			name:    "single object function",
			desc:    inline(entities.KindFunction, "area", entities.ArgsSingleObject),
			payload: entities.ObjectPayload(map[string]any{"x": int64(2), "y": int64(5)}),
			want:    int64(10),
		},
		{
			name: "class",
			desc: func() entities.ModelDescriptor {
				d := inline(entities.KindClass, "Model", entities.ArgsPositional)
				d.InvocationMethod = "predict"
				return d
			}(),
			payload: entities.PositionalPayload(int64(21)),
			want:    int64(42),
		},
		{
			name:    "async init",
			desc:    inline(entities.KindAsyncInit, "make_scaler", entities.ArgsPositional),
			payload: entities.PositionalPayload(int64(5)),
			want:    int64(15),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := serve(t)
			h.init(tt.desc)
			requireResult(t, h.call(2, tt.payload), tt.want)
		})
	}
}

func TestServe_Idempotent(t *testing.T) {
	h := serve(t)
	h.init(inline(entities.KindFunction, "add", entities.ArgsPositional))

	first := h.call(2, entities.PositionalPayload(int64(3), int64(4)))
	second := h.call(3, entities.PositionalPayload(int64(3), int64(4)))
	requireResult(t, first, int64(7))
	requireResult(t, second, first.Value)
}

func TestServe_ForeignScriptGlobalsLeak(t *testing.T) {
	h := serve(t)
	h.init(entities.ModelDescriptor{
		Kind:         entities.KindForeignScript,
		InlineSource: "a\n",
	})

	requireResult(t, h.call(2, entities.ObjectPayload(map[string]any{"a": int64(1)})), int64(1))
	// Nothing is sent for a; the binding from the previous call is still there.
	requireResult(t, h.call(3, entities.ObjectPayload(nil)), int64(1))
}

func TestServe_ForeignScriptPositionalArgs(t *testing.T) {
	h := serve(t)
	h.init(entities.ModelDescriptor{
		Kind:         entities.KindForeignScript,
		InlineSource: "total = 0\nfor v in args:\n    total += v\ntotal\n",
	})

	requireResult(t, h.call(2, entities.PositionalPayload(int64(1), int64(2), int64(3))), int64(6))
}

func TestServe_ForeignScriptError(t *testing.T) {
	h := serve(t)
	h.init(entities.ModelDescriptor{Kind: entities.KindForeignScript, InlineSource: "1 // d\n"})

	requireError(t, h.call(2, entities.ObjectPayload(map[string]any{"d": int64(0)})), entities.ErrorTypeInvocation)
	requireResult(t, h.call(3, entities.ObjectPayload(map[string]any{"d": int64(1)})), int64(1))
}

func TestServe_LoadFailures(t *testing.T) {
	t.Run("missing entry", func(t *testing.T) {
		h := serve(t)
		h.send(entities.InitMessage(1, inline(entities.KindFunction, "predict", entities.ArgsPositional)))
		detail := requireError(t, h.reply(1), entities.ErrorTypeResolution)
		assert.Equal(t, "predict", detail.Code)

		// Later calls are answered with the load failure.
		requireError(t, h.call(2, entities.PositionalPayload()), entities.ErrorTypeResolution)
	})

	t.Run("syntax error", func(t *testing.T) {
		h := serve(t)
		h.send(entities.InitMessage(1, entities.ModelDescriptor{Kind: entities.KindFunction, InlineSource: "def broken(:", EntryName: "broken"}))
		requireError(t, h.reply(1), entities.ErrorTypeLoad)
	})

	t.Run("unreachable source", func(t *testing.T) {
		fetcher := fetcherFunc(func(_ context.Context, loc string) ([]byte, error) {
			return nil, errors.New("connection refused")
		})
		h := serve(t, WithFetcher(fetcher))
		h.send(entities.InitMessage(1, entities.ModelDescriptor{Kind: entities.KindForeignScript, SourceLocation: "http://models.test/m.star"}))
		h.send(entities.CallMessage(2, entities.ObjectPayload(nil)))

		detail := requireError(t, h.reply(1), entities.ErrorTypeLoad)
		assert.Contains(t, detail.Message, "connection refused")
		requireError(t, h.reply(2), entities.ErrorTypeLoad)
	})

	t.Run("invalid descriptor", func(t *testing.T) {
		h := serve(t)
		h.send(entities.InitMessage(1, entities.ModelDescriptor{Kind: entities.KindFunction, EntryName: "add"}))
		requireError(t, h.reply(1), entities.ErrorTypeLoad)
	})

	t.Run("constructor raises", func(t *testing.T) {
		h := serve(t)
		h.send(entities.InitMessage(1, entities.ModelDescriptor{
			Kind:             entities.KindClass,
			InlineSource:     "def Broken():\n    return 1 // 0\n",
			EntryName:        "Broken",
			InvocationMethod: "predict",
		}))
		detail := requireError(t, h.reply(1), entities.ErrorTypeLoad)
		assert.Contains(t, detail.Message, "division by zero")
		require.NotNil(t, detail.Wrapped)
		assert.Equal(t, entities.ErrorTypeInvocation, detail.Wrapped.Type)
	})

	t.Run("entry not callable", func(t *testing.T) {
		h := serve(t)
		h.send(entities.InitMessage(1, entities.ModelDescriptor{
			Kind:         entities.KindFunction,
			InlineSource: "limit = 3\n",
			EntryName:    "limit",
		}))
		detail := requireError(t, h.reply(1), entities.ErrorTypeResolution)
		assert.Equal(t, "limit", detail.Code)
		assert.Contains(t, detail.Message, "not callable")
	})

	t.Run("bad wasm", func(t *testing.T) {
		h := serve(t)
		h.send(entities.InitMessage(1, entities.ModelDescriptor{
			Kind:         entities.KindFunction,
			Runtime:      entities.RuntimeWasm,
			InlineSource: "not wasm",
			EntryName:    "add",
		}))
		requireError(t, h.reply(1), entities.ErrorTypeLoad)
	})
}

func TestServe_QueuesCallsUntilReady(t *testing.T) {
	interp := starlarkengine.NewInterpreter()
	gate := &gatedInterpreter{ForeignInterpreter: interp, gate: make(chan struct{})}
	h := serve(t, WithInterpreter(gate))

	h.send(entities.InitMessage(1, entities.ModelDescriptor{Kind: entities.KindForeignScript, InlineSource: "a\n"}))
	h.send(entities.CallMessage(2, entities.ObjectPayload(map[string]any{"a": int64(5)})))
	h.send(entities.CallMessage(3, entities.ObjectPayload(nil)))

	_, err := h.next(50 * time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded, "nothing may be answered before the model is ready")

	<-interp.Ready()
	close(gate.gate)

	status := h.reply(1)
	assert.Equal(t, entities.MessageStatus, status.Kind)
	requireResult(t, h.reply(2), int64(5))
	requireResult(t, h.reply(3), int64(5))
}

func TestServe_ReadyTimeout(t *testing.T) {
	never := &gatedInterpreter{ForeignInterpreter: starlarkengine.NewInterpreter(), gate: make(chan struct{})}
	h := serve(t, WithInterpreter(never), WithReadyTimeout(50*time.Millisecond))

	h.send(entities.InitMessage(1, entities.ModelDescriptor{Kind: entities.KindForeignScript, InlineSource: "1"}))
	detail := requireError(t, h.reply(1), entities.ErrorTypeLoad)
	assert.Contains(t, detail.Message, "interpreter startup timeout")
}

func TestServe_SecondInitRejected(t *testing.T) {
	h := serve(t)
	h.init(inline(entities.KindFunction, "add", entities.ArgsPositional))

	h.send(entities.InitMessage(7, inline(entities.KindFunction, "area", entities.ArgsSingleObject)))
	detail := requireError(t, h.reply(7), entities.ErrorTypeProtocol)
	assert.Equal(t, CodeAlreadyInitialized, detail.Code)

	// The first model still answers.
	requireResult(t, h.call(8, entities.PositionalPayload(int64(1), int64(2))), int64(3))
}

func TestServe_ProtocolErrors(t *testing.T) {
	t.Run("call before init", func(t *testing.T) {
		h := serve(t)
		detail := requireError(t, h.call(1, entities.PositionalPayload()), entities.ErrorTypeProtocol)
		assert.Equal(t, CodeNotInitialized, detail.Code)
	})

	t.Run("malformed frame", func(t *testing.T) {
		h := serve(t)
		require.NoError(t, h.host.Send(context.Background(), []byte(`{"kind":`)))
		detail := requireError(t, h.reply(0), entities.ErrorTypeProtocol)
		assert.Equal(t, CodeMalformedFrame, detail.Code)
	})

	t.Run("reply kind sent to worker", func(t *testing.T) {
		h := serve(t)
		h.send(entities.InitMessage(1, inline(entities.KindFunction, "add", entities.ArgsPositional)))
		h.reply(1)
		h.send(entities.ResultMessage(4, 1))
		detail := requireError(t, h.reply(4), entities.ErrorTypeProtocol)
		assert.Equal(t, CodeUnexpectedKind, detail.Code)
	})
}

func nativeModels(t *testing.T) *native.Registry {
	t.Helper()
	reg, err := native.NewRegistry(
		native.WithFunc("add", func(_ context.Context, a, b int64) (int64, error) {
			return a + b, nil
		}),
		native.WithModel("block", func(ctx context.Context, _ ...any) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}),
		native.WithModel("stubborn", func(context.Context, ...any) (any, error) {
			time.Sleep(time.Second)
			return "late", nil
		}),
		native.WithModel("delay", func(ctx context.Context, args ...any) (any, error) {
			ms, _ := args[0].(int64)
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
				return ms, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}),
		native.WithModel("boom", func(context.Context, ...any) (any, error) {
			panic("boom")
		}),
		native.WithModel("fail", func(context.Context, ...any) (any, error) {
			return nil, errors.New("bad input")
		}),
		native.WithModel("deferred", func(ctx context.Context, args ...any) (any, error) {
			return native.Go(ctx, func(context.Context) (any, error) {
				return "eventually", nil
			}), nil
		}),
	)
	require.NoError(t, err)
	return reg
}

func nativeDesc(entry string) entities.ModelDescriptor {
	return entities.ModelDescriptor{
		Kind:          entities.KindFunction,
		Runtime:       entities.RuntimeNative,
		InlineSource:  "demo",
		EntryName:     entry,
		ArgumentStyle: entities.ArgsPositional,
	}
}

func TestServe_NativeModels(t *testing.T) {
	h := serve(t, WithNativeModels("demo", nativeModels(t)))
	h.init(nativeDesc("add"))
	requireResult(t, h.call(2, entities.PositionalPayload(int64(3), int64(4))), int64(7))
}

func TestServe_Failures(t *testing.T) {
	tests := []struct {
		entry    string
		errType  string
		contains string
	}{
		{"boom", entities.ErrorTypeInvocation, "panic: boom"},
		{"fail", entities.ErrorTypeInvocation, "bad input"},
	}
	for _, tt := range tests {
		t.Run(tt.entry, func(t *testing.T) {
			h := serve(t, WithNativeModels("demo", nativeModels(t)))
			h.init(nativeDesc(tt.entry))
			detail := requireError(t, h.call(2, entities.PositionalPayload()), tt.errType)
			assert.Contains(t, detail.Message, tt.contains)
		})
	}
}

func TestServe_AwaitsAsyncResults(t *testing.T) {
	h := serve(t, WithNativeModels("demo", nativeModels(t)))
	h.init(nativeDesc("deferred"))
	requireResult(t, h.call(2, entities.PositionalPayload()), "eventually")
}

func TestServe_TimeoutStartsWithSlot(t *testing.T) {
	h := serve(t, WithNativeModels("demo", nativeModels(t)), WithCallTimeout(100*time.Millisecond))
	h.init(nativeDesc("delay"))

	// Sequential by default: call 3 waits about 80ms for its slot and then
	// needs 50ms of its own 100ms.
	h.send(entities.CallMessage(2, entities.PositionalPayload(int64(80))))
	h.send(entities.CallMessage(3, entities.PositionalPayload(int64(50))))
	requireResult(t, h.reply(2), int64(80))
	requireResult(t, h.reply(3), int64(50))
}

func TestServe_AbandonedCallKeepsSlot(t *testing.T) {
	var running, peak atomic.Int32
	reg, err := native.NewRegistry(
		native.WithModel("sleepy", func(context.Context, ...any) (any, error) {
			n := running.Add(1)
			defer running.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(150 * time.Millisecond)
			return "done", nil
		}),
	)
	require.NoError(t, err)

	h := serve(t, WithNativeModels("demo", reg))
	h.init(nativeDesc("sleepy"))

	msg := entities.CallMessage(2, entities.PositionalPayload())
	msg.TimeoutMs = 20
	h.send(msg)
	requireError(t, h.reply(2), entities.ErrorTypeTimeout)

	// Call 3 only starts once the abandoned call 2 has returned.
	h.send(entities.CallMessage(3, entities.PositionalPayload()))
	requireResult(t, h.reply(3), "done")
	assert.Equal(t, int32(1), peak.Load())
}

func TestServe_Cancel(t *testing.T) {
	h := serve(t, WithNativeModels("demo", nativeModels(t)))
	h.init(nativeDesc("block"))

	h.send(entities.CallMessage(2, entities.PositionalPayload()))
	time.Sleep(20 * time.Millisecond)
	h.send(entities.CancelMessage(2))

	requireError(t, h.reply(2), entities.ErrorTypeCanceled)
}

func TestServe_CancelQueuedCall(t *testing.T) {
	h := serve(t, WithNativeModels("demo", nativeModels(t)))
	h.init(nativeDesc("delay"))

	// Concurrency is 1, so call 3 waits behind call 2.
	h.send(entities.CallMessage(2, entities.PositionalPayload(int64(100))))
	h.send(entities.CallMessage(3, entities.PositionalPayload(int64(1))))
	h.send(entities.CancelMessage(3))

	requireError(t, h.reply(3), entities.ErrorTypeCanceled)
	requireResult(t, h.reply(2), int64(100))
}

func TestServe_Timeouts(t *testing.T) {
	t.Run("per call", func(t *testing.T) {
		h := serve(t, WithNativeModels("demo", nativeModels(t)))
		h.init(nativeDesc("block"))

		msg := entities.CallMessage(2, entities.PositionalPayload())
		msg.TimeoutMs = 30
		h.send(msg)
		detail := requireError(t, h.reply(2), entities.ErrorTypeTimeout)
		assert.True(t, detail.IsTimeout)
	})

	t.Run("runtime default", func(t *testing.T) {
		h := serve(t, WithNativeModels("demo", nativeModels(t)), WithCallTimeout(30*time.Millisecond))
		h.init(nativeDesc("block"))
		requireError(t, h.call(2, entities.PositionalPayload()), entities.ErrorTypeTimeout)
	})

	t.Run("model ignoring its context", func(t *testing.T) {
		h := serve(t, WithNativeModels("demo", nativeModels(t)))
		h.init(nativeDesc("stubborn"))

		msg := entities.CallMessage(2, entities.PositionalPayload())
		msg.TimeoutMs = 30
		start := time.Now()
		h.send(msg)
		requireError(t, h.reply(2), entities.ErrorTypeTimeout)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})
}

func TestServe_ConcurrentRepliesMatchedByID(t *testing.T) {
	h := serve(t, WithNativeModels("demo", nativeModels(t)), WithMaxConcurrentCalls(4))
	h.init(nativeDesc("delay"))

	delays := map[uint64]int64{2: 120, 3: 10, 4: 60, 5: 0}
	for id, ms := range delays {
		h.send(entities.CallMessage(id, entities.PositionalPayload(ms)))
	}
	for id, ms := range delays {
		requireResult(t, h.reply(id), ms)
	}
}

func TestServe_LegacyDialect(t *testing.T) {
	rt := New(WithLogger(discard))
	host, peer := channel.NewPipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = rt.Serve(ctx, peer) }()
	defer host.Close()

	send := func(frame string) {
		require.NoError(t, host.Send(ctx, []byte(frame)))
	}
	recv := func() string {
		rctx, rcancel := context.WithTimeout(ctx, 5*time.Second)
		defer rcancel()
		frame, err := host.Receive(rctx)
		require.NoError(t, err)
		return string(frame)
	}

	send(`{"type":"function","url":"","code":"def add(a, b):\n    return a + b\n","name":"add","container":"args"}`)
	assert.JSONEq(t, `{"_status":"loaded"}`, recv())

	send(`[3, 4]`)
	assert.JSONEq(t, `7`, recv())

	send(`{"type":"function","url":"","code":"x","name":"x"}`)
	assert.Contains(t, recv(), "already_initialized")
}

func TestServe_LogForwarding(t *testing.T) {
	h := serve(t, WithLogForwarding(slog.LevelInfo))
	h.init(inline(entities.KindFunction, "add", entities.ArgsPositional))
	requireResult(t, h.call(2, entities.PositionalPayload(int64(1), int64(1))), int64(2))

	require.NotEmpty(t, h.logs)
	assert.Equal(t, "worker: model loaded", h.logs[0].Message)
	assert.Equal(t, "function:add", h.logs[0].Attrs["model"])
}

func TestServe_StateTransitions(t *testing.T) {
	states := make(chan entities.WorkerState, 8)
	h := serve(t, WithStateHook(func(s entities.WorkerState) { states <- s }))
	h.init(inline(entities.KindFunction, "add", entities.ArgsPositional))
	requireResult(t, h.call(2, entities.PositionalPayload(int64(1), int64(1))), int64(2))

	assert.Equal(t, entities.WorkerLoading, <-states)
	assert.Equal(t, entities.WorkerReady, <-states)
	assert.Empty(t, states, "calls leave the state unchanged")
}

func TestServe_DrainsAfterPeerCloses(t *testing.T) {
	toWorker, hostOut := io.Pipe()
	hostIn, fromWorker := io.Pipe()
	stream := channel.NewStream(toWorker, fromWorker)

	rt := New(WithLogger(discard))
	done := make(chan error, 1)
	go func() { done <- rt.Serve(context.Background(), stream) }()

	replies := make(chan string, 4)
	go func() {
		sc := bufio.NewScanner(hostIn)
		for sc.Scan() {
			replies <- sc.Text()
		}
		close(replies)
	}()

	for _, msg := range []entities.Message{
		entities.InitMessage(1, inline(entities.KindFunction, "add", entities.ArgsPositional)),
		entities.CallMessage(2, entities.PositionalPayload(int64(3), int64(4))),
	} {
		frame, err := wireformat.Encode(msg, entities.DialectTagged)
		require.NoError(t, err)
		_, err = hostOut.Write(append(frame, '\n'))
		require.NoError(t, err)
	}
	require.NoError(t, hostOut.Close())

	dec := wireformat.NewDialectDecoder(wireformat.ToHost, entities.DialectTagged)
	got := map[uint64]entities.Message{}
	for len(got) < 2 {
		select {
		case line := <-replies:
			msg, err := dec.Decode([]byte(line))
			require.NoError(t, err)
			got[msg.ID] = msg
		case <-time.After(5 * time.Second):
			t.Fatal("worker did not answer after the host closed its side")
		}
	}
	assert.Equal(t, entities.MessageStatus, got[1].Kind)
	requireResult(t, got[2], int64(7))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	_ = stream.Close()
}

func TestRuntime_Load(t *testing.T) {
	rt := New(WithLogger(discard))
	ctx := context.Background()

	m, err := rt.Load(ctx, inline(entities.KindFunction, "area", ""))
	require.NoError(t, err)
	v, err := m.Invoke(ctx, entities.ObjectPayload(map[string]any{"x": int64(2), "y": int64(5)}))
	require.NoError(t, err)
	assert.Equal(t, int64(10), v)
	require.NoError(t, m.Close(ctx))

	_, err = rt.Load(ctx, entities.ModelDescriptor{Kind: "api", InlineSource: "x", EntryName: "x"})
	assert.Error(t, err)
}

func TestRuntime_CustomLoader(t *testing.T) {
	custom := LoaderFunc(func(_ context.Context, d entities.ModelDescriptor) (Model, error) {
		return &funcModel{
			fn:    func(context.Context, ...any) (any, error) { return d.EntryName, nil },
			style: d.ArgumentStyle,
		}, nil
	})
	rt := New(WithLogger(discard), WithLoader(entities.KindClass, custom))
	assert.Equal(t, []string{"async-init-function", "class", "foreign-script", "function"}, rt.Kinds())

	m, err := rt.Load(context.Background(), inline(entities.KindClass, "Anything", ""))
	require.NoError(t, err)
	v, err := m.Invoke(context.Background(), entities.PositionalPayload())
	require.NoError(t, err)
	assert.Equal(t, "Anything", v)
}

type fetcherFunc func(ctx context.Context, location string) ([]byte, error)

func (f fetcherFunc) Fetch(ctx context.Context, location string) ([]byte, error) {
	return f(ctx, location)
}

// gatedInterpreter reports ready only when gate is closed.
type gatedInterpreter struct {
	ports.ForeignInterpreter
	gate chan struct{}
}

func (g *gatedInterpreter) Ready() <-chan struct{} {
	return g.gate
}
