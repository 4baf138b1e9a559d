package awslambda

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signetgate/signetgate/internal/port/outbound"
)

type mockLambda struct {
	out  *lambda.InvokeOutput
	err  error
	last *lambda.InvokeInput
}

func (m *mockLambda) Invoke(
	ctx context.Context,
	params *lambda.InvokeInput,
	optFns ...func(*lambda.Options),
) (*lambda.InvokeOutput, error) {
	m.last = params
	return m.out, m.err
}

func newInvoker(t *testing.T, mock LambdaAPI) *Invoker {
	t.Helper()
	inv, err := New(context.Background(), "us-east-1", "", WithClient(mock))
	require.NoError(t, err)
	return inv
}

func TestInvoker_Invoke(t *testing.T) {
	t.Parallel()

	mock := &mockLambda{
		out: &lambda.InvokeOutput{
			StatusCode: 200,
			Payload:    []byte(`{"token":"abc"}`),
		},
	}
	inv := newInvoker(t, mock)

	res, err := inv.Invoke(context.Background(), "token-minter", []byte(`{"id":"1"}`))
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode)
	assert.JSONEq(t, `{"token":"abc"}`, string(res.Payload))
	assert.Empty(t, res.FunctionError)

	require.NotNil(t, mock.last)
	assert.Equal(t, "token-minter", aws.ToString(mock.last.FunctionName))
	assert.Equal(t, types.InvocationTypeRequestResponse, mock.last.InvocationType)
}

func TestInvoker_FunctionError(t *testing.T) {
	t.Parallel()

	mock := &mockLambda{
		out: &lambda.InvokeOutput{
			StatusCode:    200,
			Payload:       []byte(`{"errorMessage":"boom"}`),
			FunctionError: aws.String("Unhandled"),
		},
	}
	inv := newInvoker(t, mock)

	res, err := inv.Invoke(context.Background(), "token-minter", nil)
	require.NoError(t, err)
	assert.Equal(t, "Unhandled", res.FunctionError)
}

func TestInvoker_UnknownFunction(t *testing.T) {
	t.Parallel()

	mock := &mockLambda{
		err: &types.ResourceNotFoundException{Message: aws.String("Function not found")},
	}
	inv := newInvoker(t, mock)

	_, err := inv.Invoke(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, outbound.ErrFunctionNotFound)
}

func TestInvoker_InvalidPayload(t *testing.T) {
	t.Parallel()

	mock := &mockLambda{
		err: &types.InvalidRequestContentException{Message: aws.String("Could not parse request body")},
	}
	inv := newInvoker(t, mock)

	_, err := inv.Invoke(context.Background(), "token-minter", []byte("not-json"))
	assert.ErrorIs(t, err, outbound.ErrInvalidPayload)
}

func TestInvoker_TransportError(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	mock := &mockLambda{err: boom}
	inv := newInvoker(t, mock)

	_, err := inv.Invoke(context.Background(), "token-minter", nil)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, outbound.ErrFunctionNotFound)
}
