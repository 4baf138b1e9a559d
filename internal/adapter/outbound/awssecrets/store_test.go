package awssecrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient implements SecretsManagerAPI for unit tests.
type mockClient struct {
	out   *secretsmanager.GetSecretValueOutput
	err   error
	calls int
	last  *secretsmanager.GetSecretValueInput
}

func (m *mockClient) GetSecretValue(
	ctx context.Context,
	params *secretsmanager.GetSecretValueInput,
	optFns ...func(*secretsmanager.Options),
) (*secretsmanager.GetSecretValueOutput, error) {
	m.calls++
	m.last = params
	return m.out, m.err
}

func storeWithMock(t *testing.T, mock SecretsManagerAPI, opts ...Option) *Store {
	t.Helper()
	opts = append(opts, WithClientFactory(func(ctx context.Context, region string) (SecretsManagerAPI, error) {
		return mock, nil
	}))
	return New(opts...)
}

func TestStore_FetchSecretString(t *testing.T) {
	t.Parallel()

	mock := &mockClient{
		out: &secretsmanager.GetSecretValueOutput{SecretString: aws.String("plain-value")},
	}
	store := storeWithMock(t, mock)

	got, err := store.Fetch(context.Background(), "my-secret", "us-east-1")
	require.NoError(t, err)
	assert.Equal(t, "plain-value", got)
	require.NotNil(t, mock.last)
	assert.Equal(t, "my-secret", aws.ToString(mock.last.SecretId))
}

func TestStore_FetchSecretBinary(t *testing.T) {
	t.Parallel()

	// The SDK hands over SecretBinary already base64-decoded.
	mock := &mockClient{
		out: &secretsmanager.GetSecretValueOutput{SecretBinary: []byte("binary-value")},
	}
	store := storeWithMock(t, mock)

	got, err := store.Fetch(context.Background(), "my-secret", "us-east-1")
	require.NoError(t, err)
	assert.Equal(t, "binary-value", got)
}

func TestStore_FetchEmptySecret(t *testing.T) {
	t.Parallel()

	mock := &mockClient{out: &secretsmanager.GetSecretValueOutput{}}
	store := storeWithMock(t, mock)

	_, err := store.Fetch(context.Background(), "my-secret", "us-east-1")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestStore_FetchNotFound(t *testing.T) {
	t.Parallel()

	mock := &mockClient{
		err: &types.ResourceNotFoundException{Message: aws.String("Secrets Manager can't find the specified secret.")},
	}
	store := storeWithMock(t, mock)

	_, err := store.Fetch(context.Background(), "missing", "us-east-1")
	assert.ErrorIs(t, err, ErrSecretNotFound)
	assert.Contains(t, err.Error(), "missing")
}

func TestStore_FetchAccessDenied(t *testing.T) {
	t.Parallel()

	mock := &mockClient{
		err: &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "not authorized"},
	}
	store := storeWithMock(t, mock)

	_, err := store.Fetch(context.Background(), "locked", "us-east-1")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestStore_DefaultRegion(t *testing.T) {
	t.Parallel()

	var seenRegion string
	mock := &mockClient{
		out: &secretsmanager.GetSecretValueOutput{SecretString: aws.String("v")},
	}
	store := New(
		WithDefaultRegion("eu-west-1"),
		WithClientFactory(func(ctx context.Context, region string) (SecretsManagerAPI, error) {
			seenRegion = region
			return mock, nil
		}),
	)

	_, err := store.Fetch(context.Background(), "s", "")
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", seenRegion)
}

func TestStore_ClientsReusedPerRegion(t *testing.T) {
	t.Parallel()

	factoryCalls := 0
	mock := &mockClient{
		out: &secretsmanager.GetSecretValueOutput{SecretString: aws.String("v")},
	}
	store := New(WithClientFactory(func(ctx context.Context, region string) (SecretsManagerAPI, error) {
		factoryCalls++
		return mock, nil
	}))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := store.Fetch(ctx, "s", "us-east-1")
		require.NoError(t, err)
	}
	_, err := store.Fetch(ctx, "s", "eu-west-1")
	require.NoError(t, err)

	assert.Equal(t, 2, factoryCalls, "one client per region")
}

func TestStore_ClientFactoryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("no credentials")
	store := New(WithClientFactory(func(ctx context.Context, region string) (SecretsManagerAPI, error) {
		return nil, boom
	}))

	_, err := store.Fetch(context.Background(), "s", "us-east-1")
	assert.ErrorIs(t, err, boom)
}
