package host

import (
	"context"
	"fmt"
	"sync"

	apptemplate "github.com/Bind-Forward/port/application/template"
	"github.com/Bind-Forward/port/application/validation"
	"github.com/Bind-Forward/port/domain/entities"
	"github.com/Bind-Forward/port/domain/ports"
	"github.com/Bind-Forward/port/infrastructure/fetch"
	"github.com/Bind-Forward/port/infrastructure/parser"
)

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	fetcher         ports.Fetcher
	templateEngine  ports.TemplateEngine
	parser          ports.SchemaParser
	validator       ports.DocumentValidator
	strictTemplates bool // Fail on missing template keys
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		parser:          parser.NewYamlSchemaParser(),
		strictTemplates: true,
	}
}

// Loader orchestrates the schema loading pipeline: fetch, render, validate
// the raw document, parse, validate the bound schema and resolve the model
// location.
type Loader struct {
	config loaderConfig

	validatorOnce sync.Once
	validatorErr  error
}

// LoaderOption configures the Loader.
type LoaderOption func(*loaderConfig)

// WithSchemaFetcher sets the fetcher documents are read with.
func WithSchemaFetcher(f ports.Fetcher) LoaderOption {
	return func(c *loaderConfig) {
		c.fetcher = f
	}
}

// WithParser sets a custom schema parser.
func WithParser(p ports.SchemaParser) LoaderOption {
	return func(c *loaderConfig) {
		c.parser = p
	}
}

// WithTemplateEngine sets a template engine.
func WithTemplateEngine(t ports.TemplateEngine) LoaderOption {
	return func(c *loaderConfig) {
		c.templateEngine = t
	}
}

// WithDocumentValidator replaces the JSON Schema check of raw documents.
func WithDocumentValidator(v ports.DocumentValidator) LoaderOption {
	return func(c *loaderConfig) {
		c.validator = v
	}
}

// WithStrictTemplates enables/disables strict template mode.
// When enabled (default), rendering fails if a referenced key is missing.
func WithStrictTemplates(enabled bool) LoaderOption {
	return func(c *loaderConfig) {
		c.strictTemplates = enabled
	}
}

// NewLoader creates a new Loader with defaults.
func NewLoader(opts ...LoaderOption) *Loader {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.templateEngine == nil {
		cfg.templateEngine = apptemplate.NewGoTemplateEngine(
			apptemplate.WithStrict(cfg.strictTemplates),
		)
	}
	return &Loader{config: cfg}
}

// Load fetches the document at location and loads it. A relative model
// location is resolved against location.
func (l *Loader) Load(ctx context.Context, location string, vars map[string]any) (*entities.Schema, error) {
	if l.config.fetcher == nil {
		return nil, fmt.Errorf("no fetcher configured to read %s", location)
	}
	raw, err := l.config.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	schema, err := l.LoadSchema(raw, vars)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	ResolveModelLocation(schema, location)
	return schema, nil
}

// LoadSchema renders, validates and parses a schema document.
func (l *Loader) LoadSchema(raw []byte, vars map[string]any) (*entities.Schema, error) {
	data := raw

	if l.config.templateEngine != nil {
		var err error
		data, err = l.config.templateEngine.Render(raw, vars)
		if err != nil {
			return nil, fmt.Errorf("failed to render schema: %w", err)
		}
	}

	v, err := l.documentValidator()
	if err != nil {
		return nil, err
	}
	doc, err := parser.Decode(data)
	if err != nil {
		return nil, err
	}
	res, err := v.Validate(doc)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("schema %w", err)
	}

	schema, err := l.config.parser.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := entities.ValidateSchema(schema); err != nil {
		return nil, err
	}
	return schema, nil
}

func (l *Loader) documentValidator() (ports.DocumentValidator, error) {
	l.validatorOnce.Do(func() {
		if l.config.validator != nil {
			return
		}
		v, err := validation.NewDocumentValidator()
		if err != nil {
			l.validatorErr = fmt.Errorf("failed to compile document schema: %w", err)
			return
		}
		l.config.validator = v
	})
	return l.config.validator, l.validatorErr
}

// ResolveModelLocation rewrites a relative model URL against the location of
// the schema that names it. Inline code makes the URL irrelevant.
func ResolveModelLocation(schema *entities.Schema, schemaURL string) {
	if schema.Model.Code != "" || schema.Model.URL == "" {
		return
	}
	schema.Model.URL = fetch.ResolveLocation(schemaURL, schema.Model.URL)
}
