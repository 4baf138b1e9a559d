// Package awssecrets provides the AWS Secrets Manager implementation of the
// SecretStore port.
package awssecrets

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
)

var (
	// ErrSecretNotFound indicates the named secret does not exist.
	ErrSecretNotFound = errors.New("secret not found")
	// ErrAccessDenied indicates the store denied access to the secret.
	ErrAccessDenied = errors.New("access to secret denied")
	// ErrEmptySecret indicates the secret exists but carries no value.
	ErrEmptySecret = errors.New("secret has no value")
)

// SecretsManagerAPI is the subset of the AWS Secrets Manager client used by
// the store. It allows mocking the SDK in unit tests.
type SecretsManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// ClientFactory builds a SecretsManagerAPI for a region.
type ClientFactory func(ctx context.Context, region string) (SecretsManagerAPI, error)

// Store implements outbound.SecretStore on AWS Secrets Manager. Clients are
// created lazily per region and reused. Thread-safe for concurrent use.
type Store struct {
	defaultRegion string
	endpoint      string
	newClient     ClientFactory

	mu      sync.Mutex
	clients map[string]SecretsManagerAPI
}

// Option is a functional option for configuring the Store.
type Option func(*Store)

// WithDefaultRegion sets the region used when a fetch passes an empty region.
func WithDefaultRegion(region string) Option {
	return func(s *Store) {
		s.defaultRegion = region
	}
}

// WithEndpoint overrides the Secrets Manager endpoint. Intended for
// localstack-style integration testing.
func WithEndpoint(endpoint string) Option {
	return func(s *Store) {
		s.endpoint = endpoint
	}
}

// WithClientFactory replaces the SDK client constructor. Used by tests to
// inject mock clients.
func WithClientFactory(factory ClientFactory) Option {
	return func(s *Store) {
		s.newClient = factory
	}
}

// New creates a Store with just-in-time credential loading via the default
// AWS configuration chain.
func New(opts ...Option) *Store {
	s := &Store{
		clients: make(map[string]SecretsManagerAPI),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newClient == nil {
		s.newClient = s.sdkClient
	}
	return s
}

// sdkClient is the default ClientFactory backed by the real SDK.
func (s *Store) sdkClient(ctx context.Context, region string) (SecretsManagerAPI, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for region %q: %w", region, err)
	}
	return secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
		if s.endpoint != "" {
			o.BaseEndpoint = aws.String(s.endpoint)
		}
	}), nil
}

// client returns the cached client for a region, creating it on first use.
func (s *Store) client(ctx context.Context, region string) (SecretsManagerAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[region]; ok {
		return c, nil
	}
	c, err := s.newClient(ctx, region)
	if err != nil {
		return nil, err
	}
	s.clients[region] = c
	return c, nil
}

// Fetch retrieves the secret value. String secrets are returned as-is;
// binary secrets arrive base64-encoded on the wire and are returned decoded
// (the SDK performs the decode).
func (s *Store) Fetch(ctx context.Context, name, region string) (string, error) {
	if region == "" {
		region = s.defaultRegion
	}

	client, err := s.client(ctx, region)
	if err != nil {
		return "", err
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", mapAPIError(name, err)
	}

	switch {
	case out.SecretString != nil:
		return *out.SecretString, nil
	case out.SecretBinary != nil:
		return string(out.SecretBinary), nil
	default:
		return "", fmt.Errorf("secret %q: %w", name, ErrEmptySecret)
	}
}

// mapAPIError converts SDK failures to the store's typed errors, preserving
// the underlying message.
func mapAPIError(name string, err error) error {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("secret %q: %w: %s", name, ErrSecretNotFound, notFound.ErrorMessage())
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "AccessDeniedException" {
		return fmt.Errorf("secret %q: %w: %s", name, ErrAccessDenied, apiErr.ErrorMessage())
	}

	return fmt.Errorf("secret %q: %w", name, err)
}
