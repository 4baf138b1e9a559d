// Package awslambda provides the AWS Lambda implementation of the
// FunctionInvoker port.
package awslambda

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/signetgate/signetgate/internal/port/outbound"
)

// LambdaAPI is the subset of the AWS Lambda client used by the invoker.
// It allows mocking the SDK in unit tests.
type LambdaAPI interface {
	Invoke(
		ctx context.Context,
		params *lambda.InvokeInput,
		optFns ...func(*lambda.Options),
	) (*lambda.InvokeOutput, error)
}

// Invoker implements outbound.FunctionInvoker on AWS Lambda using
// synchronous (RequestResponse) invocation.
type Invoker struct {
	client LambdaAPI
}

// Option is a functional option for configuring the Invoker.
type Option func(*Invoker)

// WithClient replaces the SDK client. Used by tests to inject mocks.
func WithClient(client LambdaAPI) Option {
	return func(i *Invoker) {
		i.client = client
	}
}

// New creates an Invoker for the given region using the default AWS
// configuration chain. endpoint, when non-empty, overrides the Lambda
// endpoint for localstack-style testing.
func New(ctx context.Context, region, endpoint string, opts ...Option) (*Invoker, error) {
	inv := &Invoker{}
	for _, opt := range opts {
		opt(inv)
	}
	if inv.client == nil {
		cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
		if err != nil {
			return nil, fmt.Errorf("loading AWS config for region %q: %w", region, err)
		}
		inv.client = lambda.NewFromConfig(cfg, func(o *lambda.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		})
	}
	return inv, nil
}

// Invoke calls the function synchronously and returns its status code,
// payload, and function error marker. Unknown-function and bad-payload
// conditions surface as the port's typed errors so callers can tell them
// apart from generic transport failures.
func (i *Invoker) Invoke(ctx context.Context, functionName string, payload []byte) (*outbound.InvokeResult, error) {
	out, err := i.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(functionName),
		Payload:        payload,
		InvocationType: types.InvocationTypeRequestResponse,
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("function %q: %w: %s", functionName, outbound.ErrFunctionNotFound, notFound.ErrorMessage())
		}
		var badContent *types.InvalidRequestContentException
		if errors.As(err, &badContent) {
			return nil, fmt.Errorf("function %q: %w: %s", functionName, outbound.ErrInvalidPayload, badContent.ErrorMessage())
		}
		return nil, fmt.Errorf("invoking function %q: %w", functionName, err)
	}

	return &outbound.InvokeResult{
		StatusCode:    int(out.StatusCode),
		Payload:       out.Payload,
		FunctionError: aws.ToString(out.FunctionError),
	}, nil
}
