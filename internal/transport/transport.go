// Package transport provides the upstream HTTP transports for the commerce
// and CMS clients.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// ProfileChrome selects NewChromeTransport.
const ProfileChrome = "chrome"

// ForProfile returns the base transport for an upstream TLS profile. The
// empty profile returns nil, which the clients treat as
// http.DefaultTransport.
func ForProfile(profile string, timeout time.Duration) (http.RoundTripper, error) {
	switch profile {
	case "":
		return nil, nil
	case ProfileChrome:
		return NewChromeTransport(timeout), nil
	default:
		return nil, fmt.Errorf("unknown upstream TLS profile %q", profile)
	}
}

// =============================================================================
// TLS FINGERPRINT TRANSPORT
// =============================================================================
//
// Some edge networks in front of the content and commerce APIs throttle Go's
// TLS fingerprint harder than browser traffic. The chrome profile dials with
// uTLS (HelloChrome_Auto) and speaks HTTP/2 when the upstream offers it.
//
// Cart and order calls are POSTs carrying a version, so a request is only
// re-sent over HTTP/1.1 when its body can be rewound. Hosts that refuse h2
// are remembered and go straight to HTTP/1.1 afterwards.
//
// =============================================================================

// NewChromeTransport creates an http.RoundTripper that presents Chrome's TLS
// fingerprint to upstream servers.
func NewChromeTransport(timeout time.Duration) http.RoundTripper {
	dialer := &net.Dialer{Timeout: timeout}

	h2 := &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			return dialChromeTLS(ctx, dialer, network, addr)
		},
		ReadIdleTimeout: 30 * time.Second,
	}

	h1 := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialChromeTLS(ctx, dialer, network, addr)
		},
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: timeout,
	}

	return &chromeTransport{h2: h2, h1: h1}
}

// chromeTransport routes requests over HTTP/2 and falls back to HTTP/1.1 per
// host.
type chromeTransport struct {
	h2 http.RoundTripper
	h1 http.RoundTripper

	// h1Hosts holds the hosts whose h2 attempt failed.
	h1Hosts sync.Map
}

// RoundTrip implements http.RoundTripper.
func (t *chromeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	host := req.URL.Host
	if _, ok := t.h1Hosts.Load(host); ok {
		return t.h1.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	if req.Context().Err() != nil {
		return nil, err
	}

	retry, rerr := rewind(req)
	if rerr != nil {
		return nil, fmt.Errorf("h2 request to %s failed and cannot be replayed: %w", host, err)
	}
	t.h1Hosts.Store(host, struct{}{})
	return t.h1.RoundTrip(retry)
}

// rewind returns a copy of req with a fresh body for a second attempt.
func rewind(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("request body is not rewindable")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewinding body: %w", err)
	}
	retry := req.Clone(req.Context())
	retry.Body = io.NopCloser(body)
	return retry, nil
}

// dialChromeTLS establishes a TLS connection with Chrome's fingerprint.
func dialChromeTLS(ctx context.Context, dialer *net.Dialer, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake with %s: %w", host, err)
	}
	return tlsConn, nil
}
