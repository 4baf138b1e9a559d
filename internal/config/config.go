// Package config provides configuration types for Signet Gate.
//
// Configuration is file-based (YAML) with environment variable overrides.
// The schema is intentionally small: one upstream, one signing profile, and
// an optional token minting section.
package config

import (
	"time"

	"github.com/signetgate/signetgate/internal/domain/signing"
)

// Config is the top-level configuration for Signet Gate.
type Config struct {
	// Server configures the HTTP server listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Upstream configures the backend every signed request is forwarded to.
	Upstream UpstreamConfig `yaml:"upstream" mapstructure:"upstream"`

	// Signing configures the secret and header profile used to sign requests.
	Signing SigningConfig `yaml:"signing" mapstructure:"signing"`

	// Token configures the optional token minting route.
	Token TokenConfig `yaml:"token" mapstructure:"token"`

	// AWS configures the AWS SDK clients (Secrets Manager, Lambda).
	AWS AWSConfig `yaml:"aws" mapstructure:"aws"`

	// DevMode enables development features (verbose logging, etc).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP server.
// Only HTTP is supported (use a reverse proxy for TLS).
type ServerConfig struct {
	// HTTPAddr is the address to listen on (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Defaults to "127.0.0.1:8080" (localhost only) if empty.
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	// Defaults to "info" if empty. DevMode=true overrides to "debug".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

// UpstreamConfig configures the backend server.
type UpstreamConfig struct {
	// BaseURL is the backend base URL (e.g., "http://localhost:3000").
	// A trailing slash is tolerated and stripped.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`

	// Timeout is the end-to-end timeout for a forwarded request (e.g., "30s", "1m").
	// Defaults to "30s" if not specified.
	Timeout string `yaml:"timeout" mapstructure:"timeout" validate:"omitempty,duration"`
}

// SigningConfig configures the request signing profile.
type SigningConfig struct {
	// SecretName is the Secrets Manager name of the shared signing secret.
	SecretName string `yaml:"secret_name" mapstructure:"secret_name" validate:"required"`

	// Region is the AWS region the signing secret lives in.
	// Falls back to the SDK's default region resolution if empty.
	Region string `yaml:"region" mapstructure:"region"`

	// HeaderScheme selects the signature header pair.
	// "custom" emits x-hmac-signature/x-hmac-timestamp; "legacy" emits
	// X-Signature/X-Timestamp. Defaults to "custom".
	HeaderScheme string `yaml:"header_scheme" mapstructure:"header_scheme" validate:"omitempty,oneof=custom legacy"`

	// TimestampSource selects who supplies the timestamp.
	// "server" stamps each request at forward time; "caller" requires the
	// client to send the timestamp header. Defaults to "server".
	TimestampSource string `yaml:"timestamp_source" mapstructure:"timestamp_source" validate:"omitempty,oneof=server caller"`
}

// Profile returns the signing profile described by this config.
// Call after SetDefaults so the scheme and source are populated.
func (c SigningConfig) Profile() signing.Profile {
	return signing.Profile{
		Scheme:     signing.HeaderScheme(c.HeaderScheme),
		Timestamps: signing.TimestampSource(c.TimestampSource),
	}
}

// TokenConfig configures the token minting route.
// When Enabled, SecretName and FunctionName are required.
type TokenConfig struct {
	// Enabled turns the /auth/token/{id} route on or off.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// LookupPath is the backend path prefix for identity lookups.
	// Defaults to "/identities".
	LookupPath string `yaml:"lookup_path" mapstructure:"lookup_path"`

	// SecretName is the Secrets Manager name of the token minting secret.
	// This is a separate secret from the signing secret.
	SecretName string `yaml:"secret_name" mapstructure:"secret_name"`

	// Region is the AWS region the minting secret lives in.
	// Falls back to signing.region if empty.
	Region string `yaml:"region" mapstructure:"region"`

	// FunctionName is the Lambda function that mints tokens.
	FunctionName string `yaml:"function_name" mapstructure:"function_name"`
}

// AWSConfig configures the AWS SDK clients.
type AWSConfig struct {
	// Endpoint overrides the AWS service endpoint.
	// Used for localstack and tests; leave empty in production.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,url"`
}

// SetDefaults applies sensible default values to the configuration.
func (c *Config) SetDefaults() {
	// Server defaults — bind to localhost only for security.
	// Users who need network access must explicitly set http_addr: ":8080" or "0.0.0.0:8080".
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	// Upstream defaults
	if c.Upstream.Timeout == "" {
		c.Upstream.Timeout = "30s"
	}

	// Signing defaults
	if c.Signing.HeaderScheme == "" {
		c.Signing.HeaderScheme = string(signing.HeaderSchemeCustom)
	}
	if c.Signing.TimestampSource == "" {
		c.Signing.TimestampSource = string(signing.TimestampServer)
	}

	// Token defaults
	if c.Token.LookupPath == "" {
		c.Token.LookupPath = "/identities"
	}
	if c.Token.Region == "" {
		c.Token.Region = c.Signing.Region
	}
}

// UpstreamTimeout returns the parsed upstream timeout.
// Call after SetDefaults and Validate; falls back to 30s on a bad value.
func (c *Config) UpstreamTimeout() time.Duration {
	d, err := time.ParseDuration(c.Upstream.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
