// Package config loads the settings shared by the port CLIs from a .env file,
// an optional YAML settings file and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	domainerrors "github.com/Bind-Forward/port/domain/errors"
	portlog "github.com/Bind-Forward/port/log"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Worker transports the host can start a worker over.
const (
	WorkerInProcess = "inproc"
	WorkerProcess   = "process"
	WorkerWebSocket = "websocket"
)

// Environment variable names.
const (
	EnvLogLevel          = "PORT_LOG_LEVEL"
	EnvLogFile           = "PORT_LOG_FILE"
	EnvWorker            = "PORT_WORKER"
	EnvWorkerBin         = "PORT_WORKER_BIN"
	EnvWorkerURL         = "PORT_WORKER_URL"
	EnvListen            = "PORT_LISTEN"
	EnvReadyTimeout      = "PORT_READY_TIMEOUT"
	EnvCallTimeout       = "PORT_CALL_TIMEOUT"
	EnvFetchTimeout      = "PORT_FETCH_TIMEOUT"
	EnvFetchAllowPrivate = "PORT_FETCH_ALLOW_PRIVATE"

	// EnvConfig names the YAML settings file.
	EnvConfig = "PORT_CONFIG"
)

const envPrefix = "PORT_"

// Config holds CLI settings. Flags override the loaded values.
type Config struct {
	LogFile   string
	Worker    string `validate:"oneof=inproc process websocket"`
	WorkerBin string `validate:"required_if=Worker process"`
	WorkerURL string `validate:"required_if=Worker websocket,omitempty,url"`
	Listen    string `validate:"required,hostname_port"`

	LogLevel slog.Level

	// ReadyTimeout bounds the wait for the model's loaded status.
	ReadyTimeout time.Duration `validate:"gte=0"`
	// CallTimeout is sent with every call; zero means none.
	CallTimeout  time.Duration `validate:"gte=0"`
	FetchTimeout time.Duration `validate:"gt=0"`

	FetchAllowPrivate bool
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Worker:       WorkerInProcess,
		WorkerBin:    "port-worker",
		Listen:       "127.0.0.1:8765",
		LogLevel:     slog.LevelInfo,
		ReadyTimeout: 30 * time.Second,
		FetchTimeout: 30 * time.Second,
	}
}

var validate = validator.New()

// Load reads the given .env files (".env" when none are named) into the
// process environment, then builds a Config from it. Missing .env files are
// not an error.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, &domainerrors.ConfigError{Err: fmt.Errorf("read env file: %w", err)}
	}
	return FromLookup(os.LookupEnv)
}

// LoadFile is Load with a YAML settings file underneath the environment.
// File keys are the variable names without the PORT_ prefix, in any case:
//
//	worker: process
//	call_timeout: 2s
//
// The file must exist.
func LoadFile(path string, files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, &domainerrors.ConfigError{Err: fmt.Errorf("read env file: %w", err)}
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, &domainerrors.ConfigError{Field: EnvConfig, Err: fmt.Errorf("read config: %w", err)}
	}
	return FromLookup(func(key string) (string, bool) {
		if val, ok := os.LookupEnv(key); ok {
			return val, true
		}
		name := strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if !v.IsSet(name) {
			return "", false
		}
		return v.GetString(name), true
	})
}

// FromLookup builds a Config from lookup, which reports the value of an
// environment variable.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	r := reader{lookup: lookup}

	cfg.LogFile = r.String(EnvLogFile, cfg.LogFile)
	cfg.Worker = strings.ToLower(r.String(EnvWorker, cfg.Worker))
	cfg.WorkerBin = r.String(EnvWorkerBin, cfg.WorkerBin)
	cfg.WorkerURL = r.String(EnvWorkerURL, cfg.WorkerURL)
	cfg.Listen = r.String(EnvListen, cfg.Listen)
	cfg.ReadyTimeout = r.Duration(EnvReadyTimeout, cfg.ReadyTimeout)
	cfg.CallTimeout = r.Duration(EnvCallTimeout, cfg.CallTimeout)
	cfg.FetchTimeout = r.Duration(EnvFetchTimeout, cfg.FetchTimeout)
	cfg.FetchAllowPrivate = r.Bool(EnvFetchAllowPrivate, cfg.FetchAllowPrivate)

	if v, ok := r.value(EnvLogLevel); ok {
		level, err := portlog.ParseLevel(v)
		if err != nil {
			r.fail(EnvLogLevel, err)
		}
		cfg.LogLevel = level
	}

	if r.err != nil {
		return Config{}, r.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &domainerrors.ConfigError{Field: verrs[0].Field(), Err: fmt.Errorf("failed %q", verrs[0].Tag())}
		}
		return &domainerrors.ConfigError{Err: err}
	}
	return nil
}

// reader parses typed values and keeps the first failure.
type reader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *reader) value(key string) (string, bool) {
	v, ok := r.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *reader) fail(key string, err error) {
	if r.err == nil {
		r.err = &domainerrors.ConfigError{Field: key, Err: err}
	}
}

// String returns the value of key, or def when unset or empty.
func (r *reader) String(key, def string) string {
	if v, ok := r.value(key); ok {
		return v
	}
	return def
}

// Duration accepts Go durations ("1.5s") and bare seconds ("30").
func (r *reader) Duration(key string, def time.Duration) time.Duration {
	v, ok := r.value(key)
	if !ok {
		return def
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, fmt.Errorf("invalid duration %q", v))
		return def
	}
	return d
}

// Bool accepts the strconv.ParseBool spellings.
func (r *reader) Bool(key string, def bool) bool {
	v, ok := r.value(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, fmt.Errorf("invalid boolean %q", v))
		return def
	}
	return b
}
