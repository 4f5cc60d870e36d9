package prompter_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/Bind-Forward/port/domain/entities"
	"github.com/Bind-Forward/port/infrastructure/prompter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDriver answers every prompt from canned values and records messages.
type fakeDriver struct {
	input    string
	confirm  bool
	selected string
	messages []string
	lastHelp string
}

func (d *fakeDriver) Input(_ context.Context, cfg prompter.InputConfig) (string, error) {
	d.messages = append(d.messages, cfg.Message)
	d.lastHelp = cfg.Help
	if cfg.Validator != nil {
		if err := cfg.Validator(d.input); err != nil {
			return "", err
		}
	}
	return d.input, nil
}

func (d *fakeDriver) Confirm(_ context.Context, cfg prompter.ConfirmConfig) (bool, error) {
	d.messages = append(d.messages, cfg.Message)
	return d.confirm, nil
}

func (d *fakeDriver) Select(_ context.Context, cfg prompter.SelectConfig) (string, error) {
	d.messages = append(d.messages, cfg.Message)
	return d.selected, nil
}

func (d *fakeDriver) TextArea(_ context.Context, cfg prompter.InputConfig) (string, error) {
	d.messages = append(d.messages, cfg.Message)
	return d.input, nil
}

func ptr(f float64) *float64 { return &f }

func TestCliPrompter_PromptForInput(t *testing.T) {
	tests := []struct {
		name    string
		spec    entities.InputSpec
		driver  fakeDriver
		want    any
		wantErr string
	}{
		{"int", entities.InputSpec{Name: "n", Type: entities.InputInt}, fakeDriver{input: " 42 "}, int64(42), ""},
		{"int not a number", entities.InputSpec{Name: "n", Type: entities.InputInt}, fakeDriver{input: "x"}, nil, "not an integer"},
		{"float", entities.InputSpec{Name: "f", Type: entities.InputFloat}, fakeDriver{input: "2.5"}, 2.5, ""},
		{"range bounds", entities.InputSpec{Name: "r", Type: entities.InputRange, Min: ptr(0), Max: ptr(1)}, fakeDriver{input: "3"}, nil, "at most 1"},
		{"checkbox", entities.InputSpec{Name: "c", Type: entities.InputCheckbox}, fakeDriver{confirm: true}, true, ""},
		{"select", entities.InputSpec{Name: "s", Type: entities.InputSelect, Options: []string{"a", "b"}}, fakeDriver{selected: "b"}, "b", ""},
		{"select without options", entities.InputSpec{Name: "s", Type: entities.InputSelect}, fakeDriver{}, nil, "no options"},
		{"text", entities.InputSpec{Name: "t", Type: entities.InputText}, fakeDriver{input: "line1\nline2"}, "line1\nline2", ""},
		{"string default type", entities.InputSpec{Name: "name"}, fakeDriver{input: "ada"}, "ada", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.driver
			p := prompter.NewCliPrompterWithDriver(&bytes.Buffer{}, &d)

			got, err := p.PromptForInput(tt.spec)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCliPrompter_MessageAndHelp(t *testing.T) {
	d := &fakeDriver{input: "0.5"}
	p := prompter.NewCliPrompterWithDriver(&bytes.Buffer{}, d)

	_, err := p.PromptForInput(entities.InputSpec{
		Name: "factor", Description: "scale factor", Type: entities.InputRange, Min: ptr(0), Max: ptr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"factor (scale factor)"}, d.messages)
	assert.Equal(t, "between 0 and 1", d.lastHelp)
}

func TestCliPrompter_Sources(t *testing.T) {
	d := &fakeDriver{input: "7"}
	p := prompter.NewCliPrompterWithDriver(&bytes.Buffer{}, d)

	sources := p.Sources([]entities.InputSpec{{Name: "x", Type: entities.InputInt}, {Name: "y", Type: entities.InputInt}})
	require.Len(t, sources, 2)

	v, err := sources["y"].Value(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
	assert.Equal(t, []string{"y"}, d.messages)
}

func TestCliPrompter_IsInteractive(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	defer f.Close()

	p := prompter.NewCliPrompter(f, os.Stdout)
	assert.False(t, p.IsInteractive())
}

func TestCliPrompter_FormatNonInteractiveError(t *testing.T) {
	p := prompter.NewCliPrompterWithDriver(&bytes.Buffer{}, &fakeDriver{})
	err := p.FormatNonInteractiveError([]string{"x", "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "x, y")
	assert.Contains(t, err.Error(), "--set")
	assert.False(t, errors.Is(err, prompter.ErrAborted))
}
