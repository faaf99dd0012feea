// Package transport owns the HTTP connection pool shared by the fetcher and
// the sink for the lifetime of the process.
package transport

import (
	"crypto/tls"
	"net/http"
	"sync"
	"time"
)

// Options configures a Session.
type Options struct {
	// InsecureSkipVerify disables TLS certificate verification, for collectors
	// running with self-signed certificates.
	InsecureSkipVerify bool
}

// Session lazily builds one *http.Client and hands it out on every call.
// Request deadlines come from the caller's context.
type Session struct {
	opts   Options
	mu     sync.Mutex
	client *http.Client
}

// NewSession creates a session. No connection is opened until Client is used.
func NewSession(opts Options) *Session {
	return &Session{opts: opts}
}

// Client returns the shared client, creating it on first use.
func (s *Session) Client() *http.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		tr := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
		if s.opts.InsecureSkipVerify {
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed collectors
		}
		s.client = &http.Client{Transport: tr}
	}
	return s.client
}

// Close releases idle connections. The session stays usable.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		s.client.CloseIdleConnections()
	}
}
