// Package template renders port documents before they are parsed.
package template

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/Bind-Forward/port/domain/ports"
)

// templateConfig holds configuration for the GoTemplateEngine.
type templateConfig struct {
	lookupEnv func(string) (string, bool)
	strict    bool // Fail on missing keys
}

func defaultTemplateConfig() templateConfig {
	return templateConfig{
		lookupEnv: os.LookupEnv,
		strict:    true, // Secure default
	}
}

// TemplateOption configures a GoTemplateEngine.
type TemplateOption func(*templateConfig)

// WithStrict enables/disables strict mode for missing keys.
// When enabled (default), template rendering fails if a referenced key is missing.
func WithStrict(enabled bool) TemplateOption {
	return func(c *templateConfig) {
		c.strict = enabled
	}
}

// WithEnvLookup replaces the environment lookup used by the env function.
func WithEnvLookup(lookup func(string) (string, bool)) TemplateOption {
	return func(c *templateConfig) {
		if lookup != nil {
			c.lookupEnv = lookup
		}
	}
}

// GoTemplateEngine implements TemplateEngine using standard text/template.
//
// Documents reference variables as {{.vars.name}} and environment variables
// as {{env "NAME"}} or {{env "NAME" "fallback"}}.
type GoTemplateEngine struct {
	config templateConfig
}

// NewGoTemplateEngine creates a new GoTemplateEngine.
func NewGoTemplateEngine(opts ...TemplateOption) ports.TemplateEngine {
	cfg := defaultTemplateConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &GoTemplateEngine{config: cfg}
}

// Render processes the raw document bytes with the provided variables.
func (e *GoTemplateEngine) Render(raw []byte, vars map[string]interface{}) ([]byte, error) {
	tmpl := template.New("document").Funcs(template.FuncMap{"env": e.env})

	// Use Option("missingkey=error") to fail fast if a key is missing.
	if e.config.strict {
		tmpl = tmpl.Option("missingkey=error")
	}

	tmpl, err := tmpl.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document template: %w", err)
	}

	if vars == nil {
		vars = map[string]interface{}{}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]interface{}{"vars": vars}); err != nil {
		return nil, fmt.Errorf("failed to execute document template: %w", err)
	}

	return buf.Bytes(), nil
}

func (e *GoTemplateEngine) env(name string, fallback ...string) (string, error) {
	if v, ok := e.config.lookupEnv(name); ok {
		return v, nil
	}
	if len(fallback) > 0 {
		return fallback[0], nil
	}
	if e.config.strict {
		return "", fmt.Errorf("environment variable %s is not set", name)
	}
	return "", nil
}
