package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Bind-Forward/port/config"
	"github.com/Bind-Forward/port/domain/entities"
	"github.com/Bind-Forward/port/internal/testutil"
	"github.com/Bind-Forward/port/wireformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frames(t *testing.T, msgs ...entities.Message) string {
	t.Helper()
	var b strings.Builder
	for _, msg := range msgs {
		frame, err := wireformat.Encode(msg, entities.DialectTagged)
		require.NoError(t, err)
		b.Write(frame)
		b.WriteByte('\n')
	}
	return b.String()
}

func replies(t *testing.T, out []byte) map[entities.MessageKind][]entities.Message {
	t.Helper()
	got := map[entities.MessageKind][]entities.Message{}
	dec := wireformat.NewDecoder(wireformat.ToHost)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		msg, err := dec.Decode(sc.Bytes())
		require.NoError(t, err, sc.Text())
		got[msg.Kind] = append(got[msg.Kind], msg)
	}
	return got
}

func TestServeStdio(t *testing.T) {
	t.Setenv(config.EnvLogLevel, "error")
	desc := entities.ModelDescriptor{
		Kind:          entities.KindFunction,
		InlineSource:  testutil.ModelSource,
		EntryName:     "add",
		ArgumentStyle: entities.ArgsPositional,
	}
	in := frames(t,
		entities.InitMessage(1, desc),
		entities.CallMessage(2, entities.PositionalPayload(int64(3), int64(4))),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(ctx, nil, strings.NewReader(in), &stdout, &stderr))

	got := replies(t, stdout.Bytes())
	require.Len(t, got[entities.MessageStatus], 1)
	assert.Equal(t, entities.StatusLoaded, got[entities.MessageStatus][0].Status)
	require.Len(t, got[entities.MessageResult], 1)
	assert.Equal(t, uint64(2), got[entities.MessageResult][0].ID)
	assert.Equal(t, int64(7), got[entities.MessageResult][0].Value)

	// The load is announced to the host as a forwarded log record.
	require.NotEmpty(t, got[entities.MessageLog])
	assert.Equal(t, "worker: model loaded", got[entities.MessageLog][0].Log.Message)
}

func TestBadFlags(t *testing.T) {
	var stderr bytes.Buffer
	err := run(context.Background(), []string{"--forward-level", "loud"}, strings.NewReader(""), &bytes.Buffer{}, &stderr)
	assert.ErrorContains(t, err, "invalid log level")

	err = run(context.Background(), []string{"--frob"}, strings.NewReader(""), &bytes.Buffer{}, &stderr)
	assert.ErrorContains(t, err, "unknown flag: --frob")

	err = run(context.Background(), []string{"extra"}, strings.NewReader(""), &bytes.Buffer{}, &stderr)
	assert.ErrorContains(t, err, "unknown command")
}

func TestHelp(t *testing.T) {
	var stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--help"}, strings.NewReader(""), &bytes.Buffer{}, &stderr))
	assert.Contains(t, stderr.String(), "--forward-level")
}
