package integration

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gatehttp "github.com/signetgate/signetgate/internal/adapter/inbound/http"
	"github.com/signetgate/signetgate/internal/adapter/outbound/memory"
	"github.com/signetgate/signetgate/internal/domain/secret"
	"github.com/signetgate/signetgate/internal/domain/signing"
	"github.com/signetgate/signetgate/internal/port/outbound"
	"github.com/signetgate/signetgate/internal/service"
)

// testLogger returns a logger that discards all output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestFullPath_SignedForwarding validates the whole chain for a plain proxied
// request: transport middleware -> proxy service -> signing -> upstream ->
// relay back through the transport.
func TestFullPath_SignedForwarding(t *testing.T) {
	// 1. Upstream test server that verifies the signature like a real backend
	secrets := memory.NewSecretStore()
	secrets.Put("signing-key", "", "shared-hmac-secret")

	var verified bool
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sig := r.Header.Get("x-hmac-signature")
		ts := r.Header.Get("x-hmac-timestamp")
		want := signing.Sign("shared-hmac-secret", r.Method, r.URL.RequestURI(), ts)
		verified = sig == want

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"data": "hello"})
	}))
	defer upstream.Close()

	// 2. Wire the gate the way the start command does
	cache := secret.NewCache(secrets)
	proxySvc := service.NewProxyService(cache, upstream.URL, "signing-key",
		service.WithLogger(testLogger()),
	)
	transport := gatehttp.NewHTTPTransport(proxySvc,
		gatehttp.WithLogger(testLogger()),
		gatehttp.WithSecretCache(cache),
	)
	handler := transport.Handler()

	// 3. Execute a client request through the full handler
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/data?limit=5", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("response status = %d, want %d; body: %s", recorder.Code, http.StatusOK, recorder.Body.String())
	}
	if !verified {
		t.Error("upstream saw a signature that does not verify against the shared secret")
	}

	var body map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body["data"] != "hello" {
		t.Errorf("response body data = %q, want %q", body["data"], "hello")
	}

	// 4. The request must show up in the metrics the transport registered
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(recorder.Body.String(), `signetgate_requests_total{method="GET",status="ok"} 1`) {
		t.Error("expected the proxied request to be counted in signetgate_requests_total")
	}
}

// TestFullPath_TokenMinting validates the token route end to end: signed
// identity lookup against the backend, minting secret fetch, Lambda-style
// invocation, and relay of the minted token.
func TestFullPath_TokenMinting(t *testing.T) {
	secrets := memory.NewSecretStore()
	secrets.Put("signing-key", "", "shared-hmac-secret")
	secrets.Put("mint-key", "", "minting-secret")

	// Backend serving identity lookups; verifies the lookup is signed.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/identities/") {
			http.NotFound(w, r)
			return
		}
		sig := r.Header.Get("x-hmac-signature")
		ts := r.Header.Get("x-hmac-timestamp")
		if sig != signing.Sign("shared-hmac-secret", r.Method, r.URL.RequestURI(), ts) {
			http.Error(w, "bad signature", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"account": "12345", "tier": "gold"})
	}))
	defer upstream.Close()

	// Function invoker standing in for the minting Lambda. It checks the
	// payload carries both the identity and the minting secret.
	invoker := memory.NewFunctionInvoker()
	invoker.Register("token-minter", func(payload []byte) (*outbound.InvokeResult, error) {
		var req struct {
			Identity json.RawMessage `json:"identity"`
			Secret   string          `json:"secret"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, err
		}
		if req.Secret != "minting-secret" {
			t.Errorf("mint payload secret = %q, want minting-secret", req.Secret)
		}
		if !strings.Contains(string(req.Identity), "12345") {
			t.Errorf("mint payload identity = %s, want account 12345", req.Identity)
		}
		return &outbound.InvokeResult{
			StatusCode: http.StatusOK,
			Payload:    []byte(`{"token":"tok_abc123","expires_in":3600}`),
		}, nil
	})

	cache := secret.NewCache(secrets)
	proxySvc := service.NewProxyService(cache, upstream.URL, "signing-key",
		service.WithLogger(testLogger()),
	)
	tokenSvc := service.NewTokenService(service.TokenServiceConfig{
		Proxy:        proxySvc,
		Secrets:      cache,
		Invoker:      invoker,
		SecretName:   "mint-key",
		FunctionName: "token-minter",
		Logger:       testLogger(),
	})
	transport := gatehttp.NewHTTPTransport(proxySvc,
		gatehttp.WithLogger(testLogger()),
		gatehttp.WithSecretCache(cache),
		gatehttp.WithTokenService(tokenSvc),
	)
	handler := transport.Handler()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/auth/token/12345", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("response status = %d, want %d; body: %s", recorder.Code, http.StatusOK, recorder.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body["token"] != "tok_abc123" {
		t.Errorf("token = %v, want tok_abc123", body["token"])
	}

	// Both secrets were fetched exactly once despite the two-step flow.
	if got := secrets.FetchCount("signing-key", ""); got != 1 {
		t.Errorf("signing secret fetches = %d, want 1", got)
	}
	if got := secrets.FetchCount("mint-key", ""); got != 1 {
		t.Errorf("minting secret fetches = %d, want 1", got)
	}
}

// TestFullPath_UpstreamDown validates the caller-visible error mapping when
// the backend is unreachable: 502 with the fixed JSON body, and the failure
// counted in the upstream error metric.
func TestFullPath_UpstreamDown(t *testing.T) {
	secrets := memory.NewSecretStore()
	secrets.Put("signing-key", "", "shared-hmac-secret")
	cache := secret.NewCache(secrets)

	proxySvc := service.NewProxyService(cache, "http://127.0.0.1:1", "signing-key",
		service.WithLogger(testLogger()),
	)
	transport := gatehttp.NewHTTPTransport(proxySvc,
		gatehttp.WithLogger(testLogger()),
		gatehttp.WithSecretCache(cache),
	)
	handler := transport.Handler()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/data", nil))

	if recorder.Code != http.StatusBadGateway {
		t.Fatalf("response status = %d, want %d", recorder.Code, http.StatusBadGateway)
	}
	want := `{"error":"Bad Gateway","message":"Unable to connect to target server"}`
	if strings.TrimSpace(recorder.Body.String()) != want {
		t.Errorf("body = %q, want %q", recorder.Body.String(), want)
	}

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(recorder.Body.String(), `signetgate_upstream_errors_total{kind="connect"} 1`) {
		t.Error("expected the connect failure in signetgate_upstream_errors_total")
	}
}
