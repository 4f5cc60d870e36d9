// Command port-worker hosts one model for a port host. By default it speaks
// newline-delimited JSON over stdin and stdout; with --websocket it accepts
// websocket connections and runs an independent worker per connection.
// Logs go to stderr and are forwarded to the host.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bind-Forward/port/config"
	"github.com/Bind-Forward/port/domain/ports"
	"github.com/Bind-Forward/port/infrastructure/channel"
	"github.com/Bind-Forward/port/infrastructure/fetch"
	portlog "github.com/Bind-Forward/port/log"
	"github.com/Bind-Forward/port/worker"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "port-worker:", err)
		os.Exit(1)
	}
}

// flags are the command line settings of port-worker.
type flags struct {
	configFile string
	websocket  bool
	listen     string
	forward    string
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var f flags
	cmd := &cobra.Command{
		Use:           "port-worker",
		Short:         "Host one model for a port host",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), f, stdin, stdout, stderr)
		},
	}
	cmd.Flags().StringVar(&f.configFile, "config", os.Getenv(config.EnvConfig), "YAML settings file")
	cmd.Flags().BoolVar(&f.websocket, "websocket", false, "serve websocket connections on PORT_LISTEN instead of stdio")
	cmd.Flags().StringVar(&f.listen, "listen", "", "serve websocket connections on this address (implies --websocket)")
	cmd.Flags().StringVar(&f.forward, "forward-level", "info", "lowest level of logs forwarded to the host")
	// A nil slice would make cobra fall back to os.Args.
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

func serve(ctx context.Context, f flags, stdin io.Reader, stdout, stderr io.Writer) error {
	var (
		cfg config.Config
		err error
	)
	if f.configFile != "" {
		cfg, err = config.LoadFile(f.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	forwardLevel, err := portlog.ParseLevel(f.forward)
	if err != nil {
		return err
	}
	portlog.Level.Set(cfg.LogLevel)
	logOpts := []portlog.Option{portlog.WithOutput(stderr)}
	if cfg.LogFile != "" {
		f, err := portlog.OpenFile(cfg.LogFile)
		if err != nil {
			return err
		}
		defer f.Close()
		logOpts = append(logOpts, portlog.WithFile(f))
	}
	logger := portlog.New(logOpts...).With("process", "worker", "pid", os.Getpid())

	fetcher, err := fetch.New(
		fetch.WithTimeout(cfg.FetchTimeout),
		fetch.WithSSRFProtection(true, cfg.FetchAllowPrivate),
		fetch.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	opts := []worker.Option{
		worker.WithLogger(logger),
		worker.WithFetcher(fetcher),
		worker.WithReadyTimeout(cfg.ReadyTimeout),
		worker.WithCallTimeout(cfg.CallTimeout),
		worker.WithLogForwarding(forwardLevel),
	}

	if f.listen != "" {
		cfg.Listen = f.listen
		f.websocket = true
	}
	if !f.websocket {
		return serveStdio(ctx, stdin, stdout, logger, opts)
	}
	return serveWebSocket(ctx, cfg.Listen, logger, opts)
}

func serveStdio(ctx context.Context, stdin io.Reader, stdout io.Writer, logger *slog.Logger, opts []worker.Option) error {
	rt := worker.New(opts...)
	defer closeRuntime(rt, logger)

	ch := channel.NewStream(stdin, stdout, channel.WithLogger(logger))
	defer ch.Close()

	logger.Debug("port-worker: serving stdio")
	return rt.Serve(ctx, ch)
}

func serveWebSocket(ctx context.Context, addr string, logger *slog.Logger, opts []worker.Option) error {
	handler := channel.Handler(func(ctx context.Context, ch ports.Channel) {
		rt := worker.New(opts...)
		defer closeRuntime(rt, logger)
		if err := rt.Serve(ctx, ch); err != nil && !errors.Is(err, context.Canceled) {
			logger.WarnContext(ctx, "port-worker: session ended", "error", err)
		}
	}, channel.WithLogger(logger))

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("port-worker: listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func closeRuntime(rt *worker.Runtime, logger *slog.Logger) {
	if err := rt.Close(context.Background()); err != nil {
		logger.Warn("port-worker: close failed", "error", err)
	}
}
