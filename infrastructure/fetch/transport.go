package fetch

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// pinningTransport resolves and checks the host of every request, then
// dials the checked IP directly.
type pinningTransport struct {
	base   *http.Transport
	policy addressPolicy
}

func (t *pinningTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	hostname := req.URL.Hostname()

	resolvedIP, err := t.policy.resolve(hostname)
	if err != nil {
		return nil, err
	}

	port := req.URL.Port()
	if port == "" {
		if req.URL.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}

	pinned := t.base.Clone()
	pinned.DialContext = func(ctx context.Context, network, _ string) (net.Conn, error) {
		return (&net.Dialer{}).DialContext(ctx, network, net.JoinHostPort(resolvedIP, port))
	}

	// Preserve original hostname for TLS SNI
	if req.URL.Scheme == "https" {
		if pinned.TLSClientConfig == nil {
			pinned.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		pinned.TLSClientConfig.ServerName = hostname
	}

	return pinned.RoundTrip(req)
}

func newHTTPClient(cfg config) *http.Client {
	transport := &http.Transport{
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	var rt http.RoundTripper = transport
	if cfg.ssrfProtection {
		rt = &pinningTransport{base: transport, policy: cfg.policy}
	}

	return &http.Client{
		Timeout:   cfg.timeout,
		Transport: rt,
	}
}
