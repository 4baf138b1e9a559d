// Package http provides the HTTP transport adapter for the proxy.
package http

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signetgate/signetgate/internal/domain/secret"
	"github.com/signetgate/signetgate/internal/port/inbound"
	"github.com/signetgate/signetgate/internal/service"
)

// HTTPTransport is the inbound adapter that connects the signing proxy to
// HTTP clients. Every request it accepts is signed and forwarded by the
// proxy service; the token minting route is mounted when configured.
type HTTPTransport struct {
	proxyService  *service.ProxyService
	tokenService  *service.TokenService
	server        *http.Server
	addr          string
	certFile      string
	keyFile       string
	secretCache   *secret.Cache
	logger        *slog.Logger
	metrics       *Metrics       // Prometheus metrics
	healthChecker *HealthChecker // Health check handler
}

// Option is a functional option for configuring HTTPTransport.
type Option func(*HTTPTransport)

// WithAddr sets the listen address for the HTTP server.
// Default is "127.0.0.1:8080" (localhost only).
func WithAddr(addr string) Option {
	return func(t *HTTPTransport) {
		t.addr = addr
	}
}

// WithTLS enables TLS with the provided certificate and key files.
// If not set, the server runs without TLS (plain HTTP).
func WithTLS(certFile, keyFile string) Option {
	return func(t *HTTPTransport) {
		t.certFile = certFile
		t.keyFile = keyFile
	}
}

// WithLogger sets the logger for the HTTP transport.
func WithLogger(logger *slog.Logger) Option {
	return func(t *HTTPTransport) {
		t.logger = logger
	}
}

// WithTokenService mounts the token minting route on the transport.
// When nil, /auth/token/{id} falls through to the proxy catch-all.
func WithTokenService(ts *service.TokenService) Option {
	return func(t *HTTPTransport) {
		t.tokenService = ts
	}
}

// WithSecretCache wires the secret cache into /health and the metrics registry.
func WithSecretCache(cache *secret.Cache) Option {
	return func(t *HTTPTransport) {
		t.secretCache = cache
	}
}

// WithHealthChecker sets the health checker for the /health endpoint.
func WithHealthChecker(hc *HealthChecker) Option {
	return func(t *HTTPTransport) {
		t.healthChecker = hc
	}
}

// NewHTTPTransport creates an HTTP transport adapter wrapping the given proxy service.
func NewHTTPTransport(proxyService *service.ProxyService, opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		proxyService: proxyService,
		addr:         "127.0.0.1:8080",
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Handler builds the full HTTP handler: routes plus middleware chain.
// Exposed separately from Start so tests can drive it with httptest.
func (t *HTTPTransport) Handler() http.Handler {
	// Create Prometheus registry and metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	t.metrics = NewMetrics(reg)
	if t.secretCache != nil {
		RegisterCacheMetrics(reg, t.secretCache)
	}
	t.proxyService.SetErrorRecorder(t.metrics)

	// Build middleware chain (outermost first):
	// 1. MetricsMiddleware - record duration and status (outermost to capture full duration)
	// 2. RequestID - extract/generate request ID and enrich logger
	// 3. Handler - signing proxy or token minting
	wrap := func(h http.Handler) http.Handler {
		h = RequestIDMiddleware(t.logger)(h)
		return MetricsMiddleware(t.metrics)(h)
	}

	mux := http.NewServeMux()
	if t.healthChecker != nil {
		mux.Handle("/health", t.healthChecker.Handler())
	} else {
		mux.Handle("/health", NewHealthChecker(t.secretCache, "").Handler())
	}
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		Registry: reg,
	}))
	// Token minting on its explicit path (takes priority over the catch-all)
	if t.tokenService != nil {
		mux.Handle("POST /auth/token/{id}", wrap(t.tokenService))
	}
	// Catch-all: every other request is signed and forwarded
	mux.Handle("/", wrap(t.proxyService))

	return mux
}

// Start begins accepting HTTP connections and proxying requests.
// It blocks until the context is cancelled or an error occurs.
func (t *HTTPTransport) Start(ctx context.Context) error {
	t.server = &http.Server{
		Addr:    t.addr,
		Handler: t.Handler(),
	}

	if t.certFile != "" && t.keyFile != "" {
		t.server.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	// Channel for server errors
	errCh := make(chan error, 1)

	go func() {
		var err error
		if t.certFile != "" && t.keyFile != "" {
			t.logger.Info("starting HTTPS server", "addr", t.addr)
			err = t.server.ListenAndServeTLS(t.certFile, t.keyFile)
		} else {
			t.logger.Info("starting HTTP server", "addr", t.addr)
			err = t.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		t.logger.Info("context cancelled, shutting down HTTP server")
		return t.shutdown()
	case err := <-errCh:
		return err
	}
}

// shutdown performs graceful shutdown of the HTTP server.
func (t *HTTPTransport) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := t.server.Shutdown(ctx); err != nil {
		t.logger.Error("error during server shutdown", "error", err)
		return err
	}

	t.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close gracefully shuts down the transport.
func (t *HTTPTransport) Close() error {
	if t.server == nil {
		return nil
	}
	return t.shutdown()
}

// Compile-time check that HTTPTransport implements the Transport interface.
var _ inbound.Transport = (*HTTPTransport)(nil)
