// Package fetch retrieves model and schema sources from file paths,
// file:// URLs and http(s) URLs.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	domainerrors "github.com/Bind-Forward/port/domain/errors"
	"github.com/Bind-Forward/port/domain/ports"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultTimeout bounds one remote fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize limits a fetched source.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultCacheSize is the number of remote sources kept in memory.
	DefaultCacheSize = 64
)

type config struct {
	logger         *slog.Logger
	policy         addressPolicy
	timeout        time.Duration
	maxBodySize    int64
	cacheSize      int
	ssrfProtection bool
}

func defaultConfig() config {
	return config{
		logger:         slog.Default(),
		policy:         defaultAddressPolicy(),
		timeout:        DefaultTimeout,
		maxBodySize:    DefaultMaxBodySize,
		cacheSize:      DefaultCacheSize,
		ssrfProtection: true,
	}
}

// Option configures a Fetcher.
type Option func(*config)

// WithTimeout sets the timeout of one remote fetch.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxBodySize sets the maximum size of a fetched source.
func WithMaxBodySize(size int64) Option {
	return func(c *config) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithCacheSize sets how many remote sources are cached. Zero disables the
// cache.
func WithCacheSize(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.cacheSize = n
		}
	}
}

// WithSSRFProtection enables or disables address checks on remote fetches.
// allowPrivate admits private and loopback addresses while still pinning
// the resolved IP.
func WithSSRFProtection(enabled, allowPrivate bool) Option {
	return func(c *config) {
		c.ssrfProtection = enabled
		c.policy.blockPrivate = !allowPrivate
		c.policy.blockLocalhost = !allowPrivate
	}
}

// WithAllowlist admits hosts, *.suffix wildcards or CIDRs regardless of the
// other address rules.
func WithAllowlist(patterns ...string) Option {
	return func(c *config) {
		c.policy.allowlist = append(c.policy.allowlist, patterns...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Fetcher implements ports.Fetcher. Remote sources are cached by URL;
// local files are read on every fetch.
type Fetcher struct {
	client *http.Client
	cache  *lru.Cache[string, []byte]
	cfg    config
}

var _ ports.Fetcher = (*Fetcher)(nil)

// New creates a Fetcher.
func New(opts ...Option) (*Fetcher, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &Fetcher{client: newHTTPClient(cfg), cfg: cfg}
	if cfg.cacheSize > 0 {
		cache, err := lru.New[string, []byte](cfg.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create source cache: %w", err)
		}
		f.cache = cache
	}
	return f, nil
}

// Fetch returns the bytes at location.
func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if location == "" {
		return nil, &domainerrors.FetchError{Location: location, Err: fmt.Errorf("empty location")}
	}

	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || isWindowsDrive(u.Scheme) {
		return f.readFile(location)
	}

	switch u.Scheme {
	case "file":
		return f.readFile(filePath(u))
	case "http", "https":
		return f.fetchRemote(ctx, location)
	default:
		return nil, &domainerrors.FetchError{Location: location, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}
}

func (f *Fetcher) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &domainerrors.FetchError{Location: path, Err: err}
	}
	if info.Size() > f.cfg.maxBodySize {
		return nil, &domainerrors.FetchError{
			Location: path,
			Err:      fmt.Errorf("file size %d exceeds maximum %d bytes", info.Size(), f.cfg.maxBodySize),
		}
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: reading model sources is the purpose
	if err != nil {
		return nil, &domainerrors.FetchError{Location: path, Err: err}
	}
	return data, nil
}

func (f *Fetcher) fetchRemote(ctx context.Context, location string) ([]byte, error) {
	if f.cache != nil {
		if data, ok := f.cache.Get(location); ok {
			f.cfg.logger.DebugContext(ctx, "source cache hit", "location", location)
			return data, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, &domainerrors.FetchError{Location: location, Err: err}
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &domainerrors.FetchError{Location: location, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domainerrors.FetchError{Location: location, StatusCode: resp.StatusCode}
	}

	// Read response body with size limit
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.maxBodySize+1))
	if err != nil {
		return nil, &domainerrors.FetchError{Location: location, Err: err}
	}
	if int64(len(data)) > f.cfg.maxBodySize {
		return nil, &domainerrors.FetchError{
			Location: location,
			Err:      fmt.Errorf("response exceeds maximum %d bytes", f.cfg.maxBodySize),
		}
	}

	f.cfg.logger.DebugContext(ctx, "fetched source", "location", location, "bytes", len(data), "latency", time.Since(start))
	if f.cache != nil {
		f.cache.Add(location, data)
	}
	return data, nil
}

// ResolveLocation resolves ref against the location of the document that
// names it. Absolute URLs and absolute paths are returned unchanged.
func ResolveLocation(base, ref string) string {
	if ref == "" || base == "" {
		return ref
	}
	if r, err := url.Parse(ref); err == nil && r.Scheme != "" && !isWindowsDrive(r.Scheme) {
		return ref
	}

	if b, err := url.Parse(base); err == nil && b.Scheme != "" && !isWindowsDrive(b.Scheme) {
		r, err := url.Parse(ref)
		if err != nil {
			return ref
		}
		return b.ResolveReference(r).String()
	}

	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(filepath.Dir(base), ref)
}

func filePath(u *url.URL) string {
	if u.Host != "" && u.Host != "localhost" {
		return "//" + u.Host + u.Path
	}
	return u.Path
}

// isWindowsDrive reports whether a parsed scheme is really a drive letter.
func isWindowsDrive(scheme string) bool {
	return len(scheme) == 1 && strings.ContainsAny(strings.ToLower(scheme), "abcdefghijklmnopqrstuvwxyz")
}
