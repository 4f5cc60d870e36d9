// Package prompter collects input values from a person at a terminal.
package prompter

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/Bind-Forward/port/domain/entities"
	"github.com/Bind-Forward/port/domain/ports"
)

// CliPrompter implements ports.Prompter for CLI environments.
type CliPrompter struct {
	in     io.Reader
	driver Driver
}

var _ ports.Prompter = (*CliPrompter)(nil)

// NewCliPrompter creates a CliPrompter on the given terminal streams.
func NewCliPrompter(in terminal.FileReader, out terminal.FileWriter) *CliPrompter {
	return &CliPrompter{
		in:     in,
		driver: NewSurveyDriver(terminal.Stdio{In: in, Out: out, Err: os.Stderr}),
	}
}

// NewCliPrompterWithDriver creates a CliPrompter using driver.
func NewCliPrompterWithDriver(in io.Reader, driver Driver) *CliPrompter {
	return &CliPrompter{in: in, driver: driver}
}

// IsInteractive checks if the input is a terminal.
func (p *CliPrompter) IsInteractive() bool {
	if f, ok := p.in.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return false
		}
		return (stat.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// PromptForInput asks for one input, choosing the prompt by input type.
func (p *CliPrompter) PromptForInput(spec entities.InputSpec) (any, error) {
	return p.prompt(context.Background(), spec)
}

func (p *CliPrompter) prompt(ctx context.Context, spec entities.InputSpec) (any, error) {
	message := spec.Name
	if spec.Description != "" {
		message = fmt.Sprintf("%s (%s)", spec.Name, spec.Description)
	}

	switch spec.Type {
	case entities.InputCheckbox:
		def, _ := spec.Default.(bool)
		return p.driver.Confirm(ctx, ConfirmConfig{Message: message, Default: def})

	case entities.InputSelect, entities.InputCategorical:
		if len(spec.Options) == 0 {
			return nil, fmt.Errorf("input %s has no options", spec.Name)
		}
		return p.driver.Select(ctx, SelectConfig{Message: message, Options: spec.Options, Default: defaultString(spec.Default)})

	case entities.InputText:
		return p.driver.TextArea(ctx, InputConfig{Message: message, Default: defaultString(spec.Default)})

	case entities.InputInt:
		s, err := p.driver.Input(ctx, InputConfig{
			Message:   message,
			Default:   defaultString(spec.Default),
			Validator: func(s string) error { _, err := parseInt(s, spec); return err },
		})
		if err != nil {
			return nil, err
		}
		return parseInt(s, spec)

	case entities.InputFloat, entities.InputRange:
		s, err := p.driver.Input(ctx, InputConfig{
			Message:   message,
			Default:   defaultString(spec.Default),
			Help:      rangeHelp(spec),
			Validator: func(s string) error { _, err := parseFloat(s, spec); return err },
		})
		if err != nil {
			return nil, err
		}
		return parseFloat(s, spec)

	default:
		// string, file and image inputs are collected as text; file and
		// image inputs take a path.
		return p.driver.Input(ctx, InputConfig{Message: message, Default: defaultString(spec.Default)})
	}
}

// Sources returns one InputSource per declared input that prompts when
// its value is read.
func (p *CliPrompter) Sources(specs []entities.InputSpec) map[string]ports.InputSource {
	sources := make(map[string]ports.InputSource, len(specs))
	for _, spec := range specs {
		spec := spec
		sources[spec.Name] = ports.InputSourceFunc(func(ctx context.Context) (any, error) {
			return p.prompt(ctx, spec)
		})
	}
	return sources
}

// FormatNonInteractiveError creates a helpful error.
func (p *CliPrompter) FormatNonInteractiveError(missing []string) error {
	return fmt.Errorf("inputs %s have no value and no terminal is attached; pass them with --set name=value", strings.Join(missing, ", "))
}

func parseInt(s string, spec entities.InputSpec) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return n, checkBounds(float64(n), spec)
}

func parseFloat(s string, spec entities.InputSpec) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return f, checkBounds(f, spec)
}

func checkBounds(f float64, spec entities.InputSpec) error {
	if spec.Min != nil && f < *spec.Min {
		return fmt.Errorf("must be at least %v", *spec.Min)
	}
	if spec.Max != nil && f > *spec.Max {
		return fmt.Errorf("must be at most %v", *spec.Max)
	}
	return nil
}

func rangeHelp(spec entities.InputSpec) string {
	if spec.Min == nil || spec.Max == nil {
		return ""
	}
	return fmt.Sprintf("between %v and %v", *spec.Min, *spec.Max)
}

func defaultString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
