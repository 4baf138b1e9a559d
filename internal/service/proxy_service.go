// Package service contains the core proxy service implementation: the
// signing pipeline, upstream forwarding, and the token-mint flow. Inbound
// adapters mount these services as HTTP handlers.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/signetgate/signetgate/internal/ctxkey"
	"github.com/signetgate/signetgate/internal/domain/signing"
)

// DefaultUpstreamTimeout bounds how long an upstream call may take before it
// is treated as a timeout, regardless of whether the remote eventually
// responds.
const DefaultUpstreamTimeout = 30 * time.Second

// hopByHopRequestHeaders are transport-scoped request headers that must not
// be forwarded upstream (RFC 2616 Section 13.5.1).
var hopByHopRequestHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// strippedResponseHeaders describe the hop-specific transport of the
// upstream connection, not response semantics, and are removed before the
// response is relayed to the original caller.
var strippedResponseHeaders = map[string]struct{}{
	"Connection":        {},
	"Transfer-Encoding": {},
	"Content-Encoding":  {},
}

// loggerFromContext retrieves the enriched logger from context.
// Uses the same key as HTTP middleware for request_id enrichment.
// Returns nil if no logger is in context, allowing caller to fall back.
func loggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxkey.LoggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return nil
}

// SecretGetter is the slice of the secret cache the proxy needs.
type SecretGetter interface {
	Get(ctx context.Context, name, region string) (string, error)
}

// UpstreamErrorRecorder records mapped upstream failures by kind
// (connect, timeout, other). Implemented by the HTTP adapter's metrics.
type UpstreamErrorRecorder interface {
	RecordUpstreamError(kind string)
}

// ProxyService signs inbound requests and forwards them to the configured
// backend, relaying the backend's response verbatim. It implements
// http.Handler so the inbound adapter can mount it as the catch-all route.
type ProxyService struct {
	secrets    SecretGetter
	profile    signing.Profile
	baseURL    string
	secretName string
	region     string
	client     *http.Client
	logger     *slog.Logger
	now        func() time.Time
	errors     UpstreamErrorRecorder
}

// ProxyOption is a functional option for configuring ProxyService.
type ProxyOption func(*ProxyService)

// WithProfile sets the signing profile (header scheme + timestamp source).
func WithProfile(p signing.Profile) ProxyOption {
	return func(s *ProxyService) {
		s.profile = p
	}
}

// WithRegion sets the secret store region for the signing secret.
func WithRegion(region string) ProxyOption {
	return func(s *ProxyService) {
		s.region = region
	}
}

// WithUpstreamTimeout overrides the upstream call timeout.
func WithUpstreamTimeout(d time.Duration) ProxyOption {
	return func(s *ProxyService) {
		s.client.Timeout = d
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ProxyOption {
	return func(s *ProxyService) {
		s.logger = logger
	}
}

// WithClock replaces the time source. Used by tests for deterministic
// timestamps.
func WithClock(now func() time.Time) ProxyOption {
	return func(s *ProxyService) {
		s.now = now
	}
}

// WithErrorRecorder attaches an upstream error recorder.
func WithErrorRecorder(rec UpstreamErrorRecorder) ProxyOption {
	return func(s *ProxyService) {
		s.errors = rec
	}
}

// SetErrorRecorder attaches an upstream error recorder after construction.
// The transport adapter calls this once its metrics registry exists.
func (s *ProxyService) SetErrorRecorder(rec UpstreamErrorRecorder) {
	s.errors = rec
}

// NewProxyService creates the proxy engine. baseURL is the backend base URL
// (trailing slash ignored); secretName names the signing secret in the
// remote store.
func NewProxyService(secrets SecretGetter, baseURL, secretName string, opts ...ProxyOption) *ProxyService {
	s := &ProxyService{
		secrets:    secrets,
		profile:    signing.DefaultProfile,
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretName: secretName,
		client: &http.Client{
			Timeout: DefaultUpstreamTimeout,
			// Pass redirects through to the caller instead of following them.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// signedHeaders is the result of the signing step: the header names and
// values to inject into the outbound request.
type signedHeaders struct {
	signatureName string
	signature     string
	timestampName string
	timestamp     string
}

// signRequest resolves the timestamp, fetches the signing secret, and
// computes the signature. The timestamp is resolved first so a missing
// caller timestamp fails before any secret fetch happens.
func (s *ProxyService) signRequest(ctx context.Context, method, pathAndQuery, callerTimestamp string) (signedHeaders, error) {
	ts, err := s.profile.ResolveTimestamp(callerTimestamp, s.now())
	if err != nil {
		return signedHeaders{}, err
	}

	secret, err := s.secrets.Get(ctx, s.secretName, s.region)
	if err != nil {
		return signedHeaders{}, err
	}

	return signedHeaders{
		signatureName: s.profile.SignatureHeader(),
		signature:     signing.Sign(secret, method, pathAndQuery, ts),
		timestampName: s.profile.TimestampHeader(),
		timestamp:     ts,
	}, nil
}

// SignHeaders runs the signing step for an arbitrary (method, pathAndQuery)
// pair with a server-stamped timestamp. Used by the token-mint flow, which
// signs its own internal lookup call.
func (s *ProxyService) SignHeaders(ctx context.Context, method, pathAndQuery string) (map[string]string, error) {
	serverStamped := s.profile
	serverStamped.Timestamps = signing.TimestampServer

	ts, err := serverStamped.ResolveTimestamp("", s.now())
	if err != nil {
		return nil, err
	}
	secret, err := s.secrets.Get(ctx, s.secretName, s.region)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		serverStamped.SignatureHeader(): signing.Sign(secret, method, pathAndQuery, ts),
		serverStamped.TimestampHeader(): ts,
	}, nil
}

// BaseURL returns the configured backend base URL without a trailing slash.
func (s *ProxyService) BaseURL() string {
	return s.baseURL
}

// ServeHTTP handles one proxied request: sign, forward, relay or map.
func (s *ProxyService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := loggerFromContext(r.Context())
	if logger == nil {
		logger = s.logger
	}
	pathAndQuery := r.URL.RequestURI()

	signed, err := s.signRequest(r.Context(), r.Method, pathAndQuery, r.Header.Get(s.profile.TimestampHeader()))
	if err != nil {
		if errors.Is(err, signing.ErrMissingTimestamp) {
			writeJSONError(w, http.StatusBadRequest, "Bad Request",
				"Missing required "+s.profile.TimestampHeader()+" header")
			return
		}
		// Signing failures never reach the backend: no partial or unsigned
		// forwarding.
		logger.Error("signing failed", "error", err, "path", pathAndQuery)
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error", err.Error())
		return
	}

	outReq, err := s.buildOutbound(r, pathAndQuery, signed)
	if err != nil {
		logger.Error("failed to build upstream request", "error", err, "path", pathAndQuery)
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error", err.Error())
		return
	}

	resp, err := s.client.Do(outReq)
	if err != nil {
		status, code, message, kind := mapTransportError(err)
		logger.Error("upstream call failed",
			"error", err,
			"kind", kind,
			"method", r.Method,
			"path", pathAndQuery,
		)
		if s.errors != nil {
			s.errors.RecordUpstreamError(kind)
		}
		writeJSONError(w, status, code, message)
		return
	}
	defer resp.Body.Close()

	// Non-2xx upstream statuses are legitimate outcomes, relayed untouched.
	s.relay(w, resp, logger)
}

// buildOutbound constructs the upstream request: same method, original
// path+query appended to the base URL, body streamed through. Headers are
// forwarded except Host (conflicts with the new destination), Content-Length
// (the transport recomputes it), Accept-Encoding (the transport negotiates
// and transparently decodes, keeping relayed bodies verbatim), and the
// hop-by-hop set. The signature and timestamp headers are injected last.
func (s *ProxyService) buildOutbound(r *http.Request, pathAndQuery string, signed signedHeaders) (*http.Request, error) {
	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, s.baseURL+pathAndQuery, r.Body)
	if err != nil {
		return nil, err
	}

	for key, values := range r.Header {
		for _, v := range values {
			outReq.Header.Add(key, v)
		}
	}
	outReq.Header.Del("Host")
	outReq.Header.Del("Content-Length")
	outReq.Header.Del("Accept-Encoding")
	for _, h := range hopByHopRequestHeaders {
		outReq.Header.Del(h)
	}

	outReq.Header.Set(signed.signatureName, signed.signature)
	outReq.Header.Set(signed.timestampName, signed.timestamp)

	if r.ContentLength >= 0 {
		outReq.ContentLength = r.ContentLength
	}
	return outReq, nil
}

// relay copies the upstream response to the caller: status verbatim,
// headers verbatim minus connection-management headers, body verbatim.
func (s *ProxyService) relay(w http.ResponseWriter, resp *http.Response, logger *slog.Logger) {
	for key, values := range resp.Header {
		if _, strip := strippedResponseHeaders[http.CanonicalHeaderKey(key)]; strip {
			continue
		}
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.Debug("error copying upstream response body", "error", err)
	}
}

// mapTransportError classifies an upstream transport failure into the
// caller-visible outcome. Timeouts win over connect errors because a dial
// timeout is still a timeout to the caller.
func mapTransportError(err error) (status int, code, message, kind string) {
	var ne net.Error
	if (errors.As(err, &ne) && ne.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "Gateway Timeout", "Request to target server timed out", "timeout"
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return http.StatusBadGateway, "Bad Gateway", "Unable to connect to target server", "connect"
	}

	// Internal-network proxy: surfacing the raw error message is acceptable.
	return http.StatusInternalServerError, "Internal Server Error", err.Error(), "other"
}

// writeJSONError writes the structured JSON error body used for every
// mapped failure.
func writeJSONError(w http.ResponseWriter, status int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
