// Command port runs a model described by a schema document.
//
//	port run <schema> [--set name=value ...] [--var key=value ...] [-i] [--legacy]
//	port validate <schema> [--var key=value ...]
//	port schema
//
// Settings come from the PORT_* environment variables, optionally read from
// a .env file, and from the YAML file named by --config or PORT_CONFIG.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/AlecAivazis/survey/v2/terminal"
	port "github.com/Bind-Forward/port"
	"github.com/Bind-Forward/port/application/output"
	"github.com/Bind-Forward/port/application/schema"
	"github.com/Bind-Forward/port/config"
	"github.com/Bind-Forward/port/domain/entities"
	"github.com/Bind-Forward/port/domain/ports"
	"github.com/Bind-Forward/port/host"
	"github.com/Bind-Forward/port/infrastructure/channel"
	"github.com/Bind-Forward/port/infrastructure/fetch"
	"github.com/Bind-Forward/port/infrastructure/parser"
	"github.com/Bind-Forward/port/infrastructure/prompter"
	portlog "github.com/Bind-Forward/port/log"
	"github.com/Bind-Forward/port/worker"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app carries what every command needs.
type app struct {
	stdin      terminal.FileReader
	stdout     io.Writer
	stderr     io.Writer
	configFile string
	cfg        config.Config
	logger     *slog.Logger
	closeLog   func()
}

// usageError marks a command line that could not be parsed.
type usageError struct {
	err   error
	usage string
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func run(ctx context.Context, args []string, stdin terminal.FileReader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, closeLog: func() {}}
	defer func() { a.closeLog() }()

	root := a.rootCmd()
	// A nil slice would make cobra fall back to os.Args.
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintln(stderr, "port:", err)
	var uerr *usageError
	if errors.As(err, &uerr) {
		fmt.Fprint(stderr, uerr.usage)
		return 2
	}
	return 1
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "port",
		Short:         "Run models described by schema documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &usageError{err: fmt.Errorf("unknown command %q", args[0]), usage: cmd.UsageString()}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return &usageError{err: errors.New("missing command"), usage: cmd.UsageString()}
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&a.configFile, "config", os.Getenv(config.EnvConfig), "YAML settings file")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err, usage: cmd.UsageString()}
	})
	root.AddCommand(a.runCmd(), a.validateCmd(), schemaCmd())
	return root
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of schema documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := schema.DocumentSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(doc))
			return nil
		},
	}
}

// setup loads settings and builds the logger. Commands that need neither
// skip it.
func (a *app) setup() error {
	var (
		cfg config.Config
		err error
	)
	if a.configFile != "" {
		cfg, err = config.LoadFile(a.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, a.stderr)
	if err != nil {
		return err
	}
	a.cfg, a.logger, a.closeLog = cfg, logger, closeLog
	return nil
}

// schemaLocation takes the single positional argument of run and validate.
func schemaLocation(cmd *cobra.Command, args []string) error {
	switch {
	case len(args) == 0:
		return fmt.Errorf("%s: missing schema location", cmd.Name())
	case len(args) > 1:
		return fmt.Errorf("%s: unexpected arguments %v", cmd.Name(), args[1:])
	}
	return nil
}

func newLogger(cfg config.Config, stderr io.Writer) (*slog.Logger, func(), error) {
	portlog.Level.Set(cfg.LogLevel)
	opts := []portlog.Option{portlog.WithOutput(stderr)}
	closeLog := func() {}
	if cfg.LogFile != "" {
		f, err := portlog.OpenFile(cfg.LogFile)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, portlog.WithFile(f))
		closeLog = func() { _ = f.Close() }
	}
	return portlog.New(opts...), closeLog, nil
}

// pairs collects repeated name=value flags.
type pairs map[string]string

func (p pairs) String() string {
	parts := make([]string, 0, len(p))
	for k, v := range p {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (p pairs) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	p[strings.TrimSpace(name)] = value
	return nil
}

func (p pairs) Type() string { return "name=value" }

func (p pairs) vars() map[string]any {
	vars := make(map[string]any, len(p))
	for k, v := range p {
		vars[k] = v
	}
	return vars
}

func (a *app) fetcher() (*fetch.Fetcher, error) {
	return fetch.New(
		fetch.WithTimeout(a.cfg.FetchTimeout),
		fetch.WithSSRFProtection(true, a.cfg.FetchAllowPrivate),
		fetch.WithLogger(a.logger),
	)
}

// dialer returns the transport for isolated models, or nil for the default
// in-process worker.
func (a *app) dialer() host.Dialer {
	switch a.cfg.Worker {
	case config.WorkerProcess:
		return host.Process(a.cfg.WorkerBin, nil, channel.WithLogger(a.logger), channel.WithStderr(a.stderr))
	case config.WorkerWebSocket:
		return host.WebSocket(a.cfg.WorkerURL, channel.WithLogger(a.logger))
	default:
		return nil
	}
}

type reply struct {
	err *entities.ErrorDetail
	id  uint64
}

func (a *app) runCmd() *cobra.Command {
	sets, vars := pairs{}, pairs{}
	var interactive, legacy bool
	cmd := &cobra.Command{
		Use:   "run <schema>",
		Short: "Run the model once with the given inputs",
		Args:  schemaLocation,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			return a.run(cmd.Context(), args[0], sets, vars, interactive, legacy)
		},
	}
	cmd.Flags().Var(sets, "set", "input value as name=value (repeatable)")
	cmd.Flags().Var(vars, "var", "template variable as key=value (repeatable)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for inputs that were not set")
	cmd.Flags().BoolVar(&legacy, "legacy", false, "speak the untagged protocol dialect to the worker")
	return cmd
}

func (a *app) run(ctx context.Context, location string, sets, vars pairs, interactive, legacy bool) error {
	fetcher, err := a.fetcher()
	if err != nil {
		return err
	}
	replies := make(chan reply, 1)
	opts := []host.Option{
		host.WithLogger(a.logger),
		host.WithFetcher(fetcher),
		host.WithOutputSink(output.NewWriterSink(a.stdout)),
		host.WithTemplateVars(vars.vars()),
		host.WithCallTimeout(a.cfg.CallTimeout),
		host.WithWorkerOptions(worker.WithReadyTimeout(a.cfg.ReadyTimeout)),
		host.WithResultHandler(func(id uint64, _ any) { replies <- reply{id: id} }),
		host.WithErrorHandler(func(id uint64, d *entities.ErrorDetail) { replies <- reply{id: id, err: d} }),
	}
	if d := a.dialer(); d != nil {
		opts = append(opts, host.WithDialer(d))
	}
	if legacy {
		opts = append(opts, host.WithLegacyDialect())
	}
	c := host.New(opts...)
	defer func() {
		if err := c.Close(); err != nil {
			a.logger.Warn("port: close failed", "error", err)
		}
	}()

	if err := c.InitializeFrom(ctx, location); err != nil {
		return err
	}
	s := c.Schema()
	sources, err := a.sources(s, sets, interactive)
	if err != nil {
		return err
	}
	c.BindAll(sources)

	readyCtx := ctx
	if a.cfg.ReadyTimeout > 0 {
		var cancel context.CancelFunc
		readyCtx, cancel = context.WithTimeout(ctx, a.cfg.ReadyTimeout)
		defer cancel()
	}
	if err := c.WaitReady(readyCtx); err != nil {
		return fmt.Errorf("model %s did not load: %w", s.Descriptor().Label(), err)
	}

	id, err := c.Run(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case r := <-replies:
			if r.id != id {
				continue
			}
			if r.err != nil {
				return r.err
			}
			return nil
		case <-ctx.Done():
			_ = c.Cancel(context.WithoutCancel(ctx), id)
			return ctx.Err()
		}
	}
}

// sources binds -set values, then prompts for what is still missing when
// asked to. Inputs with a default may stay unbound.
func (a *app) sources(s *entities.Schema, sets pairs, interactive bool) (map[string]ports.InputSource, error) {
	values, err := parseSets(s.Inputs, sets)
	if err != nil {
		return nil, err
	}
	sources := make(map[string]ports.InputSource, len(s.Inputs))
	for name, v := range values {
		sources[name] = constant(v)
	}

	var unset, missing []entities.InputSpec
	for _, in := range s.Inputs {
		if _, ok := sources[in.Name]; ok {
			continue
		}
		unset = append(unset, in)
		if in.Default == nil {
			missing = append(missing, in)
		}
	}
	p := prompter.NewCliPrompter(a.stdin, os.Stderr)
	if interactive && p.IsInteractive() {
		for name, src := range p.Sources(unset) {
			sources[name] = src
		}
		return sources, nil
	}
	if len(missing) > 0 {
		names := make([]string, len(missing))
		for i, in := range missing {
			names[i] = in.Name
		}
		return nil, p.FormatNonInteractiveError(names)
	}
	return sources, nil
}

// parseSets converts -set values to the type their input declares.
func parseSets(specs []entities.InputSpec, sets pairs) (port.Params, error) {
	raw := port.Params{}
	byName := make(map[string]entities.InputSpec, len(specs))
	for _, in := range specs {
		byName[in.Name] = in
	}
	for name, value := range sets {
		in, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown input %q", name)
		}
		switch in.Type {
		case entities.InputInt, entities.InputFloat, entities.InputRange, entities.InputCheckbox, "":
			v, err := parser.Decode([]byte(value))
			if err != nil {
				return nil, fmt.Errorf("input %q: %w", name, err)
			}
			raw[name] = v
		default:
			raw[name] = value
		}
	}

	values := port.Params{}
	for name := range raw {
		var (
			v   any
			err error
		)
		switch byName[name].Type {
		case entities.InputInt:
			v, err = raw.RequireInt(name)
		case entities.InputFloat, entities.InputRange:
			v, err = raw.RequireFloat(name)
		case entities.InputCheckbox:
			v, err = raw.RequireBool(name)
		default:
			v = raw[name]
		}
		if err != nil {
			return nil, err
		}
		values[name] = v
	}
	return values, nil
}

func constant(v any) ports.InputSource {
	return ports.InputSourceFunc(func(context.Context) (any, error) { return v, nil })
}

func (a *app) validateCmd() *cobra.Command {
	vars := pairs{}
	cmd := &cobra.Command{
		Use:   "validate <schema>",
		Short: "Check a schema document and its model descriptor",
		Args:  schemaLocation,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			return a.validate(cmd.Context(), args[0], vars)
		},
	}
	cmd.Flags().Var(vars, "var", "template variable as key=value (repeatable)")
	return cmd
}

func (a *app) validate(ctx context.Context, location string, vars pairs) error {
	fetcher, err := a.fetcher()
	if err != nil {
		return err
	}
	loader := host.NewLoader(host.WithSchemaFetcher(fetcher))
	s, err := loader.Load(ctx, location, vars.vars())
	if err != nil {
		return err
	}
	s.Normalize()
	desc := s.Descriptor()
	if err := entities.ValidateDescriptor(desc); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s: ok (%s, %d inputs, %d outputs)\n", location, desc.Label(), len(s.Inputs), len(s.Outputs))
	return nil
}
