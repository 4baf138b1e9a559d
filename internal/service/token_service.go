package service

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/signetgate/signetgate/internal/port/outbound"
)

// TokenServiceConfig carries the dependencies and settings for TokenService.
type TokenServiceConfig struct {
	// Proxy provides the signing step for the internal lookup call.
	Proxy *ProxyService
	// Secrets resolves the token secret (distinct from the signing secret).
	Secrets SecretGetter
	// Invoker calls the external token-minting function.
	Invoker outbound.FunctionInvoker
	// LookupPath is the backend path prefix for identity lookups
	// (default "/identities").
	LookupPath string
	// SecretName names the token secret in the remote store.
	SecretName string
	// Region is the secret store region for the token secret.
	Region string
	// FunctionName is the token-minting function to invoke.
	FunctionName string
	// Client is the HTTP client for the lookup call. Defaults to a client
	// with the standard upstream timeout.
	Client *http.Client
	Logger *slog.Logger
}

// TokenService implements the token-mint path: resolve an identity record
// from the backend via a signed lookup, fetch the token secret, invoke the
// minting function, and relay the minted token. It is a specialization of
// the proxy engine's signing step, not a separate signing scheme.
type TokenService struct {
	proxy        *ProxyService
	secrets      SecretGetter
	invoker      outbound.FunctionInvoker
	lookupPath   string
	secretName   string
	region       string
	functionName string
	client       *http.Client
	logger       *slog.Logger
}

// NewTokenService creates the token-mint service.
func NewTokenService(cfg TokenServiceConfig) *TokenService {
	t := &TokenService{
		proxy:        cfg.Proxy,
		secrets:      cfg.Secrets,
		invoker:      cfg.Invoker,
		lookupPath:   strings.TrimRight(cfg.LookupPath, "/"),
		secretName:   cfg.SecretName,
		region:       cfg.Region,
		functionName: cfg.FunctionName,
		client:       cfg.Client,
		logger:       cfg.Logger,
	}
	if t.lookupPath == "" {
		t.lookupPath = "/identities"
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: DefaultUpstreamTimeout}
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

// ServeHTTP handles one mint request. The route registers the {id} path
// parameter; ServeHTTP reads it via Request.PathValue.
func (t *TokenService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := loggerFromContext(r.Context())
	if logger == nil {
		logger = t.logger
	}

	id := r.PathValue("id")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "Bad Request", "Missing identifier")
		return
	}

	if t.secretName == "" || t.functionName == "" {
		logger.Error("token mint not configured", "secret_name", t.secretName, "function_name", t.functionName)
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error", "configuration error")
		return
	}

	// Step (a): signed identity lookup against the backend.
	identity, status, upstreamBody, err := t.lookupIdentity(r, id)
	if err != nil {
		mappedStatus, code, message, kind := mapTransportError(err)
		logger.Error("identity lookup failed", "error", err, "kind", kind, "id", id)
		writeJSONError(w, mappedStatus, code, message)
		return
	}
	if status >= 400 {
		// Backend failure passes through status and message untouched.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(upstreamBody)
		return
	}

	// Step (b): fetch the token secret, distinct from the signing secret.
	secret, err := t.secrets.Get(r.Context(), t.secretName, t.region)
	if err != nil {
		logger.Error("token secret fetch failed", "error", err, "secret_name", t.secretName)
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error", "configuration error")
		return
	}

	// Step (c): synchronous function invocation with identity and secret.
	payload, err := json.Marshal(mintPayload{Identity: identity, Secret: secret})
	if err != nil {
		logger.Error("failed to marshal mint payload", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error", "token generation failed")
		return
	}

	result, err := t.invoker.Invoke(r.Context(), t.functionName, payload)
	if err != nil || result.StatusCode >= 400 || result.FunctionError != "" {
		logger.Error("token function invocation failed",
			"error", err,
			"function", t.functionName,
		)
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error", "token generation failed")
		return
	}

	// Step (d): relay the minted token.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Payload)
}

// mintPayload is the function invocation payload.
type mintPayload struct {
	Identity json.RawMessage `json:"identity"`
	Secret   string          `json:"secret"`
}

// lookupIdentity signs and issues the internal lookup call. The lookup is
// always server-stamped: there is no inbound timestamp to echo on an
// internally-originated request. Returns the identity document on success,
// or the backend's status and body when the backend answered with an error.
func (t *TokenService) lookupIdentity(r *http.Request, id string) (json.RawMessage, int, []byte, error) {
	pathAndQuery := t.lookupPath + "/" + url.PathEscape(id)

	headers, err := t.proxy.SignHeaders(r.Context(), http.MethodGet, pathAndQuery)
	if err != nil {
		return nil, 0, nil, err
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, t.proxy.BaseURL()+pathAndQuery, nil)
	if err != nil {
		return nil, 0, nil, err
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, body, nil
	}

	if !json.Valid(body) {
		// Non-JSON identity documents are carried as a JSON string so the
		// function payload stays well-formed.
		quoted, err := json.Marshal(string(body))
		if err != nil {
			return nil, 0, nil, err
		}
		return quoted, resp.StatusCode, nil, nil
	}
	return json.RawMessage(body), resp.StatusCode, nil, nil
}
