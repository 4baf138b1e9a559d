package outbound

import (
	"context"
	"errors"
)

var (
	// ErrFunctionNotFound indicates the named function does not exist.
	ErrFunctionNotFound = errors.New("function not found")
	// ErrInvalidPayload indicates the function rejected the request payload.
	ErrInvalidPayload = errors.New("invalid function payload")
)

// InvokeResult is the outcome of a synchronous function invocation.
type InvokeResult struct {
	// StatusCode is the invocation status code. Values >= 400 are failures.
	StatusCode int
	// Payload is the raw response payload.
	Payload []byte
	// FunctionError is non-empty when the function itself raised an error
	// even though the invocation transport succeeded.
	FunctionError string
}

// FunctionInvoker is the outbound port for synchronously invoking an
// external function-as-a-service endpoint.
type FunctionInvoker interface {
	Invoke(ctx context.Context, functionName string, payload []byte) (*InvokeResult, error)
}
